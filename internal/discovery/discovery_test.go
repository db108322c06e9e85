package discovery

import "testing"

func TestAdvertiser_NotRunningInitially(t *testing.T) {
	a := &Advertiser{}
	if a.Running() {
		t.Error("expected a freshly constructed advertiser to not be running")
	}
}

func TestAdvertiser_StopWithoutStartIsNoOp(t *testing.T) {
	a := &Advertiser{}
	a.Stop() // must not panic
	if a.Running() {
		t.Error("expected advertiser to remain not-running")
	}
}
