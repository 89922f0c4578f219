// ABOUTME: Browsing state machine: devices, a day's segments and sequential playback
// ABOUTME: Results issued before the latest device or day selection are discarded

package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neves-cloud/blackbox/internal/client"
)

// Phase is the current step of the browsing flow
type Phase int

const (
	NoDevice Phase = iota
	DeviceSelected
	FetchingSegments
	SegmentsListed
	ResolvingURL
	Playing
	PlaylistDone
)

func (p Phase) String() string {
	switch p {
	case NoDevice:
		return "NoDevice"
	case DeviceSelected:
		return "DeviceSelected"
	case FetchingSegments:
		return "FetchingSegments"
	case SegmentsListed:
		return "SegmentsListed"
	case ResolvingURL:
		return "ResolvingURL"
	case Playing:
		return "Playing"
	case PlaylistDone:
		return "PlaylistDone"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// DeviceAPI is the subset of the client used by the browsing flow
type DeviceAPI interface {
	ListDevices(ctx context.Context) ([]client.Device, error)
	RegisterDevice(ctx context.Context, id, name string) error
	ListSegments(ctx context.Context, deviceID string, day client.Day) ([]client.Segment, error)
	SignURL(ctx context.Context, objectKey string) (string, error)
	SignURLs(ctx context.Context, objectKeys []string) (map[string]string, error)
}

type browseOp int

const (
	opListDevices browseOp = iota
	opRegisterDevice
	opListSegments
	opSignURL
	opSignAll
)

// BrowseRequest is one network step produced by a browsing operation
type BrowseRequest struct {
	op       browseOp
	seq      int // device list, registration or play sequence
	gen      int // selection generation, for segment and URL requests
	deviceID string
	name     string
	day      client.Day
	key      string
	keys     []string
	url      string // already resolved; Execute skips the network
}

// BrowseResult is the outcome of executing a BrowseRequest
type BrowseResult struct {
	req      BrowseRequest
	devices  []client.Device
	segments []client.Segment
	url      string
	urls     map[string]string
	err      error
}

// Err returns the network error, if any
func (r BrowseResult) Err() error { return r.err }

// Browse drives device listing, registration, segment listing and playback.
// All methods except Execute must be called from a single goroutine.
type Browse struct {
	api   DeviceAPI
	eager bool

	devices        []client.Device
	devicesSeq     int
	devicesLoading bool
	registerEpoch  int
	registerCount  int // registrations in flight

	phase    Phase
	gen      int
	deviceID string
	day      client.Day
	segments []client.Segment
	urls     map[string]string
	current  int
	playSeq  int
	url      string
	advances int

	message string
	notice  string

	onUnauthorized func(error)
}

// BrowseOption configures a Browse
type BrowseOption func(*Browse)

// WithEagerURLs resolves a day's playback URLs in one batch after listing
func WithEagerURLs(eager bool) BrowseOption {
	return func(b *Browse) {
		b.eager = eager
	}
}

// OnUnauthorized registers the forced-logout callback
func OnUnauthorized(fn func(error)) BrowseOption {
	return func(b *Browse) {
		b.onUnauthorized = fn
	}
}

// NewBrowse creates a browsing flow with no device selected
func NewBrowse(api DeviceAPI, opts ...BrowseOption) *Browse {
	b := &Browse{api: api, current: -1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Browse) Phase() Phase               { return b.phase }
func (b *Browse) Devices() []client.Device   { return b.devices }
func (b *Browse) DevicesLoading() bool       { return b.devicesLoading }
func (b *Browse) Registering() bool          { return b.registerCount > 0 }
func (b *Browse) DeviceID() string           { return b.deviceID }
func (b *Browse) Day() client.Day            { return b.day }
func (b *Browse) Segments() []client.Segment { return b.segments }
func (b *Browse) Message() string            { return b.message }
func (b *Browse) Notice() string             { return b.notice }
func (b *Browse) Eager() bool                { return b.eager }

// Advances counts end-of-segment events that were accepted since the last selection
func (b *Browse) Advances() int { return b.advances }

// Device returns the selected device when it is in the loaded list
func (b *Browse) Device() (client.Device, bool) {
	for _, d := range b.devices {
		if d.ID == b.deviceID {
			return d, true
		}
	}
	return client.Device{}, false
}

// Current returns the segment being resolved or played
func (b *Browse) Current() (client.Segment, bool) {
	if b.current < 0 || b.current >= len(b.segments) {
		return client.Segment{}, false
	}
	return b.segments[b.current], true
}

// CurrentIndex is the position of the current segment, or -1
func (b *Browse) CurrentIndex() int { return b.current }

// CurrentURL is the signed URL of the playing segment
func (b *Browse) CurrentURL() string { return b.url }

// Resolved reports whether an eager URL is held for key
func (b *Browse) Resolved(key string) bool {
	_, ok := b.urls[key]
	return ok
}

// LoadDevices requests the device list. The newest request wins.
func (b *Browse) LoadDevices() BrowseRequest {
	b.devicesSeq++
	b.devicesLoading = true
	b.message = ""
	return BrowseRequest{op: opListDevices, seq: b.devicesSeq}
}

// RegisterDevice validates and requests a registration
func (b *Browse) RegisterDevice(id, name string) (BrowseRequest, error) {
	id, err := ValidateDeviceID(id)
	if err == nil {
		name, err = ValidateDeviceName(name)
	}
	if err != nil {
		b.message = Describe(err)
		return BrowseRequest{}, err
	}
	b.registerCount++
	b.message = ""
	b.notice = ""
	return BrowseRequest{op: opRegisterDevice, seq: b.registerEpoch, deviceID: id, name: name}, nil
}

// SelectDevice makes id current and drops everything loaded for the previous device
func (b *Browse) SelectDevice(id string) error {
	if id == "" {
		return b.reject(client.Validation("device", "is required"))
	}
	b.gen++
	b.deviceID = id
	b.day = client.Day{}
	b.clearPlayback()
	b.message = ""
	b.notice = ""
	b.phase = DeviceSelected
	slog.Debug("Device selected", "device", id, "generation", b.gen)
	return nil
}

// FetchSegments requests the selected device's segments for day
func (b *Browse) FetchSegments(day client.Day) (BrowseRequest, error) {
	if b.deviceID == "" {
		return BrowseRequest{}, b.reject(client.Validation("device", "select a device first"))
	}
	if day.IsZero() {
		return BrowseRequest{}, b.reject(client.Validation("date", "is required"))
	}
	b.gen++
	b.day = day
	b.clearPlayback()
	b.message = ""
	b.phase = FetchingSegments
	return BrowseRequest{op: opListSegments, gen: b.gen, deviceID: b.deviceID, day: day}, nil
}

// Play starts resolving a segment's URL. Lazy mode always signs afresh.
// Eager mode uses the URL resolved with the listing once; replays sign afresh
// since batch URLs expire.
func (b *Browse) Play(key string) (BrowseRequest, error) {
	idx := b.indexOf(key)
	if idx < 0 {
		return BrowseRequest{}, b.reject(client.Validation("segment", "%q is not in the current list", key))
	}
	b.current = idx
	b.url = ""
	b.message = ""
	b.phase = ResolvingURL
	url := b.urls[key]
	delete(b.urls, key)
	b.playSeq++
	return BrowseRequest{op: opSignURL, seq: b.playSeq, gen: b.gen, key: key, url: url}, nil
}

// SegmentEnded handles the end of the current segment. It returns the
// request for the next segment, or false when the list is exhausted.
// Events for any other key are ignored.
func (b *Browse) SegmentEnded(key string) (BrowseRequest, bool) {
	cur, ok := b.Current()
	if b.phase != Playing || !ok || cur.ObjectKey != key {
		slog.Debug("Ignoring end of segment", "key", key, "phase", b.phase)
		return BrowseRequest{}, false
	}
	b.advances++

	if b.current == len(b.segments)-1 {
		b.phase = PlaylistDone
		b.url = ""
		b.current = -1
		return BrowseRequest{}, false
	}
	req, err := b.Play(b.segments[b.current+1].ObjectKey)
	return req, err == nil
}

// Stop ends playback and returns to the listing
func (b *Browse) Stop() {
	if b.phase == ResolvingURL || b.phase == Playing || b.phase == PlaylistDone {
		b.phase = SegmentsListed
	}
	b.current = -1
	b.url = ""
}

// Reset forgets everything, as after a logout
func (b *Browse) Reset() {
	b.gen++
	b.devicesSeq++
	b.devices = nil
	b.devicesLoading = false
	b.registerEpoch++
	b.registerCount = 0
	b.deviceID = ""
	b.day = client.Day{}
	b.clearPlayback()
	b.phase = NoDevice
	b.message = ""
	b.notice = ""
}

// Execute performs the network call for req. It does not touch flow state.
func (b *Browse) Execute(ctx context.Context, req BrowseRequest) BrowseResult {
	res := BrowseResult{req: req}
	switch req.op {
	case opListDevices:
		res.devices, res.err = b.api.ListDevices(ctx)
	case opRegisterDevice:
		res.err = b.api.RegisterDevice(ctx, req.deviceID, req.name)
	case opListSegments:
		res.segments, res.err = b.api.ListSegments(ctx, req.deviceID, req.day)
	case opSignURL:
		if req.url != "" {
			res.url = req.url
			break
		}
		res.url, res.err = b.api.SignURL(ctx, req.key)
	case opSignAll:
		res.urls, res.err = b.api.SignURLs(ctx, req.keys)
	default:
		res.err = fmt.Errorf("unknown browse operation %d", req.op)
	}
	return res
}

// Apply commits a result and may return a follow-up request.
// The returned error is the failure carried by res, if it was applied.
func (b *Browse) Apply(res BrowseResult) (*BrowseRequest, error) {
	if b.stale(res.req) {
		slog.Debug("Discarding stale browse result", "op", res.req.op, "generation", res.req.gen, "current", b.gen)
		return nil, nil
	}

	if res.err != nil {
		b.failed(res.req)
		b.message = Describe(res.err)
		if errors.Is(res.err, client.ErrUnauthorized) && b.onUnauthorized != nil {
			b.onUnauthorized(res.err)
		}
		return nil, res.err
	}

	switch res.req.op {
	case opListDevices:
		b.devicesLoading = false
		b.devices = res.devices
	case opRegisterDevice:
		b.registerCount--
		b.notice = fmt.Sprintf("Registered %s.", res.req.name)
		next := b.LoadDevices()
		return &next, nil
	case opListSegments:
		b.segments = res.segments
		b.phase = SegmentsListed
		if b.eager && len(b.segments) > 0 {
			keys := make([]string, len(b.segments))
			for i, s := range b.segments {
				keys[i] = s.ObjectKey
			}
			return &BrowseRequest{op: opSignAll, gen: b.gen, keys: keys}, nil
		}
	case opSignURL:
		b.url = res.url
		b.phase = Playing
	case opSignAll:
		b.urls = res.urls
	}
	return nil, nil
}

// Run executes req and every follow-up synchronously
func (b *Browse) Run(ctx context.Context, req BrowseRequest) error {
	next := &req
	for next != nil {
		var err error
		next, err = b.Apply(b.Execute(ctx, *next))
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Browse) stale(req BrowseRequest) bool {
	switch req.op {
	case opListDevices:
		return req.seq != b.devicesSeq
	case opRegisterDevice:
		return req.seq != b.registerEpoch
	case opSignURL:
		// Only the latest Play may commit, success or failure
		return req.gen != b.gen || req.seq != b.playSeq || b.phase != ResolvingURL
	default:
		return req.gen != b.gen
	}
}

// failed rolls the phase back to where the request was issued from
func (b *Browse) failed(req BrowseRequest) {
	switch req.op {
	case opListDevices:
		b.devicesLoading = false
	case opRegisterDevice:
		b.registerCount--
	case opListSegments:
		b.phase = DeviceSelected
	case opSignURL:
		b.phase = SegmentsListed
		b.current = -1
		b.url = ""
	case opSignAll:
		// Lazy signing still works without the batch
		b.urls = nil
	}
}

func (b *Browse) clearPlayback() {
	b.segments = nil
	b.urls = nil
	b.current = -1
	b.url = ""
	b.advances = 0
}

func (b *Browse) indexOf(key string) int {
	for i, s := range b.segments {
		if s.ObjectKey == key {
			return i
		}
	}
	return -1
}

func (b *Browse) reject(err error) error {
	b.message = Describe(err)
	return err
}
