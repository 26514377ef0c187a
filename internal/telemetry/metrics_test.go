package telemetry

import "testing"

func TestRingCapsRetainedSamples(t *testing.T) {
	r := newRing(3)
	for i := 0; i < 5; i++ {
		r.add(float64(i))
	}
	got := r.snapshot()
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCollectorRetainsSamplesPerTag(t *testing.T) {
	c := NewCollector()
	c.ObserveJobDuration("save_note", "success", 0.1)
	c.ObserveJobDuration("save_note", "failure", 0.2)
	c.ObserveActionDuration("parse_html", 0.05)

	if got := c.JobDurationSamples("save_note", "success"); len(got) != 1 || got[0] != 0.1 {
		t.Errorf("unexpected success samples: %v", got)
	}
	if got := c.JobDurationSamples("save_note", "failure"); len(got) != 1 || got[0] != 0.2 {
		t.Errorf("unexpected failure samples: %v", got)
	}
	if got := c.ActionDurationSamples("parse_html"); len(got) != 1 || got[0] != 0.05 {
		t.Errorf("unexpected action samples: %v", got)
	}
}
