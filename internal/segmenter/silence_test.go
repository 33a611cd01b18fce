package segmenter_test

import (
	"testing"

	"ayashare/internal/segmenter"
	"ayashare/internal/testsupport"
)

func TestDetectNonsilentFindsSpeechRegions(t *testing.T) {
	pcm := testsupport.SpeechPCM(8000, 4000,
		testsupport.Region{StartMS: 500, EndMS: 1500},
		testsupport.Region{StartMS: 2500, EndMS: 3500},
	)
	thresh := pcm.DBFS() - 16

	ranges := segmenter.DetectNonsilent(pcm, 100, thresh)
	if len(ranges) != 2 {
		t.Fatalf("expected 2 nonsilent ranges, got %+v", ranges)
	}
	for i, want := range []segmenter.Range{{StartMS: 500, EndMS: 1500}, {StartMS: 2500, EndMS: 3500}} {
		got := ranges[i]
		if abs(got.StartMS-want.StartMS) > 5 || abs(got.EndMS-want.EndMS) > 5 {
			t.Fatalf("range %d: got %+v want about %+v", i, got, want)
		}
	}
}

func TestDetectNonsilentEdgeCases(t *testing.T) {
	loud := testsupport.SpeechPCM(8000, 1000, testsupport.Region{StartMS: 0, EndMS: 1000})
	ranges := segmenter.DetectNonsilent(loud, 100, loud.DBFS()-16)
	if len(ranges) != 1 || ranges[0].StartMS != 0 || ranges[0].EndMS != 1000 {
		t.Fatalf("expected a single full-length range for audio without silence, got %+v", ranges)
	}

	silent := testsupport.SpeechPCM(8000, 1000)
	if ranges := segmenter.DetectNonsilent(silent, 100, silent.DBFS()-16); len(ranges) != 0 {
		t.Fatalf("expected no ranges for silent audio, got %+v", ranges)
	}

	short := testsupport.SpeechPCM(8000, 50, testsupport.Region{StartMS: 0, EndMS: 50})
	if ranges := segmenter.DetectSilence(short, 100, -20); ranges != nil {
		t.Fatalf("expected no silence detection for audio shorter than the window, got %+v", ranges)
	}
}

func TestSplitRangesPadsAndMeetsAtMidpoint(t *testing.T) {
	// Speech separated by a 120 ms gap: 2*100 ms of padding overlaps.
	pcm := testsupport.SpeechPCM(8000, 2000,
		testsupport.Region{StartMS: 300, EndMS: 900},
		testsupport.Region{StartMS: 1020, EndMS: 1700},
	)
	ranges := segmenter.SplitRanges(pcm, 100, pcm.DBFS()-16, 100)
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %+v", ranges)
	}
	if ranges[0].EndMS != ranges[1].StartMS {
		t.Fatalf("expected overlapping padding to meet at one point, got %+v", ranges)
	}
	if ranges[0].StartMS > 205 || ranges[0].StartMS < 195 {
		t.Fatalf("expected leading padding of 100 ms, got %+v", ranges[0])
	}

	edge := testsupport.SpeechPCM(8000, 1000, testsupport.Region{StartMS: 0, EndMS: 400})
	clamped := segmenter.SplitRanges(edge, 100, edge.DBFS()-16, 200)
	if len(clamped) != 1 || clamped[0].StartMS != 0 {
		t.Fatalf("expected padding clamped to audio start, got %+v", clamped)
	}
}

func TestStricterOffsetNeverIncreasesSegments(t *testing.T) {
	pcm := testsupport.SpeechPCM(8000, 3000,
		testsupport.Region{StartMS: 200, EndMS: 800},
		testsupport.Region{StartMS: 1200, EndMS: 1800},
		testsupport.Region{StartMS: 2200, EndMS: 2800},
	)
	// Add a quiet bed so the offset actually matters.
	for i := range pcm.Samples {
		if pcm.Samples[i] == 0 {
			pcm.Samples[i] = 300 * (1 - 2*(i%2))
		}
	}
	loose := segmenter.SplitRanges(pcm, 100, pcm.DBFS()-10, 0)
	strict := segmenter.SplitRanges(pcm, 100, pcm.DBFS()-40, 0)
	if len(strict) > len(loose) {
		t.Fatalf("stricter threshold produced more segments: loose=%d strict=%d", len(loose), len(strict))
	}
	if len(loose) != 3 {
		t.Fatalf("expected the loose threshold to split on the quiet bed, got %d", len(loose))
	}
	if len(strict) != 1 {
		t.Fatalf("expected the strict threshold to treat the quiet bed as speech, got %d", len(strict))
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
