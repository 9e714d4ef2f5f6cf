package notify

import (
	"context"
	"errors"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// mockMessageCreator implements messageCreator for tests.
type mockMessageCreator struct {
	got *twilioApi.CreateMessageParams
	err error
}

func (m *mockMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	m.got = params
	if m.err != nil {
		return nil, m.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestNotifyBooked_Success(t *testing.T) {
	mock := &mockMessageCreator{}
	n := &SMSNotifier{api: mock, from: "+15550001111", to: "+15550002222"}

	err := n.NotifyBooked(context.Background(), "Meeting booked: Team sync")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.got == nil || mock.got.Body == nil || *mock.got.Body != "Meeting booked: Team sync" {
		t.Errorf("unexpected params: %+v", mock.got)
	}
	if *mock.got.To != "+15550002222" || *mock.got.From != "+15550001111" {
		t.Errorf("to/from not set correctly: %+v", mock.got)
	}
}

func TestNotifyBooked_Error(t *testing.T) {
	mock := &mockMessageCreator{err: errors.New("twilio down")}
	n := &SMSNotifier{api: mock, from: "+1", to: "+2"}

	if err := n.NotifyBooked(context.Background(), "x"); err == nil {
		t.Error("expected error from failing send")
	}
}

func TestNewSMSNotifier_MissingConfig(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	t.Setenv("CONFIRMATION_SMS_TO", "")

	if _, err := NewSMSNotifier(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewSMSNotifier(WithAccountSID("AC1"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without from/to numbers")
	}
}
