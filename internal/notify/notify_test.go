package notify

import "testing"

func TestUrgencyHintValues(t *testing.T) {
	for want, u := range []Urgency{UrgencyLow, UrgencyNormal, UrgencyCritical} {
		if byte(u) != byte(want) {
			t.Errorf("urgency %d = %d", want, u)
		}
	}
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	if id, err := n.Notify(Notification{Title: "x"}); id != 0 || err != nil {
		t.Errorf("Notify() = %d, %v", id, err)
	}
	if err := n.Close(1); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
