package broker

import "testing"

func TestRetryConfigDelayForGrowsExponentiallyAndCaps(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         10,
		MaxDelay:          35,
		BackoffMultiplier: 2,
	}

	cases := []struct {
		attempt int
		want    int64
	}{
		{0, 10},
		{1, 20},
		{2, 35}, // would be 40, capped at MaxDelay
	}

	for _, c := range cases {
		if got := cfg.delayFor(c.attempt); int64(got) != c.want {
			t.Errorf("delayFor(%d) = %d, want %d", c.attempt, int64(got), c.want)
		}
	}
}

func TestDefaultRetryConfigAppliedWhenUnset(t *testing.T) {
	cons := NewConsumer(nil, nil, ConsumerConfig{Queue: QueueNote})
	if cons.retryConfig.MaxAttempts != DefaultRetryConfig().MaxAttempts {
		t.Errorf("expected default MaxAttempts, got %d", cons.retryConfig.MaxAttempts)
	}
}
