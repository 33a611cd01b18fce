// Package server exposes the pipeline over HTTP using gin.
//
// POST /api/runs accepts a multipart "audio" upload and an optional
// "endpoint" form value, stores the upload under the upload directory, and
// runs the pipeline synchronously in <work_dir>/runs/<run id>. Runs are
// serialized. GET /api/runs and GET /api/runs/:id read the history store,
// and GET /api/runs/:id/video downloads a finished video.
package server
