package events

import "testing"

func TestParseEnvelopeDiscriminatesType(t *testing.T) {
	data := []byte(`{"type":"TIMER_UPDATE","userId":"7","status":"WORK"}`)
	env, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.Type != MessageTypeTimerUpdate {
		t.Errorf("type = %q, want TIMER_UPDATE", env.Type)
	}

	payload, err := ParsePayload(env)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	update, ok := payload.(TimerUpdatePayload)
	if !ok {
		t.Fatalf("payload type = %T, want TimerUpdatePayload", payload)
	}
	if update.UserID != "7" || update.Status != StatusWork {
		t.Errorf("payload = %+v, want userId 7 status WORK", update)
	}
}

func TestParseEnvelopeRejectsUntaggedMessage(t *testing.T) {
	if _, err := ParseEnvelope([]byte(`{"userId":"7"}`)); err == nil {
		t.Error("expected error for message without type tag")
	}
	if _, err := ParseEnvelope([]byte(`not json`)); err == nil {
		t.Error("expected error for non-JSON message")
	}
}

func TestParsePayloadUnknownTypeIsNoOp(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"SOMETHING_NEW","detail":42}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	payload, err := ParsePayload(env)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if payload != nil {
		t.Errorf("payload = %v, want nil for unknown type", payload)
	}
}

func TestCountdownActive(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusWork:    true,
		StatusBreak:   true,
		StatusOnline:  false,
		StatusOffline: false,
	} {
		if got := status.CountdownActive(); got != want {
			t.Errorf("CountdownActive(%s) = %v, want %v", status, got, want)
		}
	}
}
