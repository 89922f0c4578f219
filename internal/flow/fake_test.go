// ABOUTME: In-memory fakes of the identity and device services for flow tests
// ABOUTME: Record every call so tests can assert that gated input never reached the network

package flow

import (
	"context"
	"sync"

	"github.com/neves-cloud/blackbox/internal/client"
)

type fakeIdentity struct {
	mu    sync.Mutex
	calls []string

	passwordErr error
	verifyToken string
	verifyErr   error
	requestErr  error
	confirmErr  error
	signupToken string
	signupErr   error
}

func (f *fakeIdentity) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeIdentity) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIdentity) RequestEmailCode(ctx context.Context, email string) error {
	f.record("RequestEmailCode")
	return f.requestErr
}

func (f *fakeIdentity) ConfirmEmailCode(ctx context.Context, email, code string) error {
	f.record("ConfirmEmailCode")
	return f.confirmErr
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (string, error) {
	f.record("SignUp")
	return f.signupToken, f.signupErr
}

func (f *fakeIdentity) SubmitPassword(ctx context.Context, email, password string) error {
	f.record("SubmitPassword")
	return f.passwordErr
}

func (f *fakeIdentity) VerifySignIn(ctx context.Context, email, code string) (string, error) {
	f.record("VerifySignIn")
	return f.verifyToken, f.verifyErr
}

type fakeDevices struct {
	mu    sync.Mutex
	calls []string

	devices     []client.Device
	listErr     error
	registerErr error
	segments    map[string][]client.Segment // by device id
	segmentsErr error
	signErr     error
	batchErr    error
}

func (f *fakeDevices) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeDevices) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeDevices) ListDevices(ctx context.Context) ([]client.Device, error) {
	f.record("ListDevices")
	return f.devices, f.listErr
}

func (f *fakeDevices) RegisterDevice(ctx context.Context, id, name string) error {
	f.record("RegisterDevice")
	if f.registerErr == nil {
		f.devices = append(f.devices, client.Device{ID: id, Name: name})
	}
	return f.registerErr
}

func (f *fakeDevices) ListSegments(ctx context.Context, deviceID string, day client.Day) ([]client.Segment, error) {
	f.record("ListSegments")
	if f.segmentsErr != nil {
		return nil, f.segmentsErr
	}
	segments := f.segments[deviceID]
	if segments == nil {
		segments = []client.Segment{}
	}
	return segments, nil
}

func (f *fakeDevices) SignURL(ctx context.Context, objectKey string) (string, error) {
	f.record("SignURL")
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://cdn.example.com/" + objectKey, nil
}

func (f *fakeDevices) SignURLs(ctx context.Context, objectKeys []string) (map[string]string, error) {
	f.record("SignURLs")
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	urls := make(map[string]string, len(objectKeys))
	for _, k := range objectKeys {
		urls[k] = "https://cdn.example.com/batch/" + k
	}
	return urls, nil
}
