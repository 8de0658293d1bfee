package service

import (
	"context"
	"time"

	ua "github.com/mileusna/useragent"

	"github.com/atishaytuli/YURL/internal/geo"
	"github.com/atishaytuli/YURL/internal/types"
)

// DefaultGeoTimeout bounds the location lookup. Past it the click is
// recorded with Unknown/Unknown instead of waiting.
const DefaultGeoTimeout = 3 * time.Second

// ClientSignal carries what we know about the requester of a redirect.
type ClientSignal struct {
	UserAgent  string
	RemoteAddr string
}

// Ingestor enriches resolution events with device and location and
// hands them to the sink. Everything it does is best-effort: no call
// path out of Record can fail the redirect.
type Ingestor struct {
	sink       ClickSink
	locator    Locator
	geoTimeout time.Duration
}

func NewIngestor(sink ClickSink, locator Locator) *Ingestor {
	return &Ingestor{
		sink:       sink,
		locator:    locator,
		geoTimeout: DefaultGeoTimeout,
	}
}

// Record classifies the device, looks up the location under the
// timeout, pushes one click event and returns the scheme-normalized
// destination. It returns a usable redirect URL no matter what failed
// along the way.
func (i *Ingestor) Record(ctx context.Context, linkID, originalURL string, sig ClientSignal) string {
	redirectURL := NormalizeDestination(originalURL)

	location := i.locate(ctx, sig.RemoteAddr)

	i.sink.PushClick(types.ClickEvent{
		LinkID:  linkID,
		Device:  ClassifyDevice(sig.UserAgent),
		Country: location.Country,
		City:    location.City,
	})

	return redirectURL
}

// locate runs the lookup in its own goroutine so that even a locator
// that ignores its context cannot hold up click recording past the
// timeout bound.
func (i *Ingestor) locate(ctx context.Context, addr string) geo.Location {
	ctx, cancel := context.WithTimeout(ctx, i.geoTimeout)
	defer cancel()

	type answer struct {
		loc geo.Location
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		loc, err := i.locator.Locate(ctx, addr)
		ch <- answer{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return geo.Unknown
	case a := <-ch:
		if a.err != nil {
			return geo.Unknown
		}
		return a.loc
	}
}

// ClassifyDevice collapses a user-agent string to one of the four
// device classes. An explicit mobile or tablet signal wins; an
// iOS/Android OS with no explicit type counts as mobile; everything
// else defaults to desktop.
func ClassifyDevice(userAgent string) string {
	parsed := ua.Parse(userAgent)
	switch {
	case parsed.Tablet:
		return types.DeviceTablet
	case parsed.Mobile:
		return types.DeviceMobile
	case parsed.OS == ua.IOS || parsed.OS == ua.Android:
		return types.DeviceMobile
	default:
		return types.DeviceDesktop
	}
}
