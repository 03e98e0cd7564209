package instance

import "testing"

func TestIDPrefersInstanceID(t *testing.T) {
	t.Setenv("INSTANCE_ID", "api-7")
	t.Setenv("HOSTNAME", "pod-abc")
	if got := ID("api"); got != "api-7" {
		t.Fatalf("expected api-7, got %s", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv("INSTANCE_ID", "")
	t.Setenv("HOSTNAME", "")
	if got := ID("outbox-publisher"); got != "outbox-publisher-local" {
		t.Fatalf("unexpected id %s", got)
	}
}
