package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	records := []models.Product{
		{Name: "Lavender Oil", Price: "$12.00", URL: "https://shop.example.com/a"},
		{Name: "Rose Quartz", Price: "From $40.00 - $45.00", URL: "https://shop.example.com/b"},
	}

	tests := []struct {
		name    string
		records []models.Product
		kind    Kind
		want    Message
	}{
		{
			name:    "new",
			records: records,
			kind:    KindNew,
			want: Message{
				Title: "Scraper: Found 2 New Product(s)!",
				Body:  "- Lavender Oil ($12.00)\n- Rose Quartz (From $40.00 - $45.00)",
			},
		},
		{
			name:    "restocked single",
			records: records[:1],
			kind:    KindRestocked,
			want: Message{
				Title: "Scraper: 1 Product(s) Back in Stock!",
				Body:  "- Lavender Oil ($12.00)",
				URL:   "https://shop.example.com/a",
			},
		},
		{
			name: "empty",
			kind: KindNew,
			want: Message{Title: "Scraper: Found 0 New Product(s)!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.records, tt.kind))
		})
	}
}

func TestPushover_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		got = map[string]string{}
		for k := range r.PostForm {
			got[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p := NewPushover(PushoverConfig{
		AppToken:  "app",
		UserToken: "user",
		APIURL:    srv.URL,
		URLTitle:  "View Product Page",
		Timeout:   time.Second,
	}, nil, logger.NewNop())

	err := p.Send(context.Background(), Message{Title: "T", Body: "B", URL: "https://shop.example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"token":     "app",
		"user":      "user",
		"title":     "T",
		"message":   "B",
		"url":       "https://shop.example.com/a",
		"url_title": "View Product Page",
	}, got)
}

func TestPushover_SendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["application token is invalid"]}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPushover(PushoverConfig{APIURL: srv.URL}, srv.Client(), logger.NewNop())
	err := p.Send(context.Background(), Message{Title: "T", Body: "B"})
	require.ErrorIs(t, err, ErrDelivery)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "application token is invalid")
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(logger.NewNop()).Send(context.Background(), Message{Title: "T"}))
}
