package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
)

var _ credentials.WebDataStore = (*FakeWebData)(nil)

// FakeWebData counts wipe calls.
type FakeWebData struct {
	lock        sync.Mutex
	cookieWipes int
	recordWipes int
	cacheQuota  int64
	quotaSet    bool
	CookiesErr  error
}

func NewFakeWebData() *FakeWebData {
	return &FakeWebData{cacheQuota: -1}
}

func (w *FakeWebData) RemoveAllCookies(context.Context) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.CookiesErr != nil {
		return w.CookiesErr
	}
	w.cookieWipes++
	return nil
}

func (w *FakeWebData) SetCacheQuota(_ context.Context, bytes int64) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.cacheQuota = bytes
	w.quotaSet = true
	return nil
}

func (w *FakeWebData) RemoveAllRecords(context.Context) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.recordWipes++
	return nil
}

// Wiped reports whether a full wipe (cookies, zero cache quota, records) happened.
func (w *FakeWebData) Wiped() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.cookieWipes > 0 && w.recordWipes > 0 && w.quotaSet && w.cacheQuota == 0
}

func (w *FakeWebData) CookieWipes() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.cookieWipes
}
