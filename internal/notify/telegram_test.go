package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu   sync.Mutex
	sent []url.Values
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"alerts","username":"alerts_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			assert.NoError(t, r.ParseForm())
			f.mu.Lock()
			f.sent = append(f.sent, r.PostForm)
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"group"}}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}
}

func newTestTelegram(t *testing.T, chat string) (*Telegram, *fakeBotAPI) {
	t.Helper()
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	tg, err := NewTelegramWithClient("token", srv.URL+"/bot%s/%s", chat, NewFormatter(FormatConfig{TokenName: "LORDS"}), srv.Client())
	require.NoError(t, err)
	return tg, api
}

func TestTelegramNotifyChatID(t *testing.T) {
	tg, api := newTestTelegram(t, "-100")

	require.NoError(t, tg.Notify(context.Background(), sampleRecord()))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.sent, 1)
	form := api.sent[0]
	assert.Equal(t, "-100", form.Get("chat_id"))
	assert.Equal(t, "HTML", form.Get("parse_mode"))
	assert.Equal(t, "true", form.Get("disable_web_page_preview"))
	assert.Contains(t, form.Get("text"), "<b>LORDS Buy!</b>")
}

func TestTelegramNotifyChannel(t *testing.T) {
	tg, api := newTestTelegram(t, "@lords_buys")

	require.NoError(t, tg.Notify(context.Background(), sampleRecord()))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.sent, 1)
	assert.Equal(t, "@lords_buys", api.sent[0].Get("chat_id"))
}

func TestTelegramNotifyCanceled(t *testing.T) {
	tg, api := newTestTelegram(t, "1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tg.Notify(ctx, sampleRecord()), context.Canceled)
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.sent)
}

func TestNewTelegramValidation(t *testing.T) {
	f := NewFormatter(FormatConfig{})
	_, err := NewTelegramWithClient("", "", "1", f, http.DefaultClient)
	assert.Error(t, err)
	_, err = NewTelegramWithClient("token", "", "", f, http.DefaultClient)
	assert.Error(t, err)
	_, err = NewTelegramWithClient("token", "", "chat", f, http.DefaultClient)
	assert.Error(t, err)
}
