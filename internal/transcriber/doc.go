// Package transcriber sends segment audio to a speech-to-text endpoint and
// records one transcript per segment.
//
// Segments are processed one at a time in numeric chunk order so position i
// of the transcript manifest always describes chunk_<i>. Per-segment request
// failures (timeouts, connection errors, non-2xx responses) are recorded on
// the transcript and the batch continues; any other failure aborts the batch
// before transcriptions.json is written.
//
// Two upload backends exist: HTTPUploader posts the raw file as multipart
// field "file" to any endpoint that answers with {"text": ...}, and
// OpenAIUploader uses the OpenAI audio transcription API.
package transcriber
