package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/config"
	"backoffice/internal/fudo"
	"backoffice/internal/screen"
)

func TestRootCommandWiresSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "payment-methods", "display"}, names)

	display, _, err := root.Find([]string{"display"})
	require.NoError(t, err)
	assert.NotNil(t, display.Flags().Lookup("code"))
	assert.NotNil(t, display.Flags().Lookup("url"))
}

func TestServeRequiresSecrets(t *testing.T) {
	err := runServe(context.Background(), config.Config{MongoURI: "mongodb://localhost"})
	assert.EqualError(t, err, "JWT_SECRET is required")

	err = runServe(context.Background(), config.Config{JWTSecret: "s"})
	assert.EqualError(t, err, "MONGO_URI is required")
}

func TestPrintPaymentMethods(t *testing.T) {
	var out bytes.Buffer
	err := printPaymentMethods(&out, []fudo.PaymentMethod{
		{ID: "1", Code: "cash", Name: "Efectivo", Active: true},
	}, map[string]string{"efectivo": "1", "cash": "1"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "Efectivo")
	assert.True(t, strings.HasPrefix(lines[4], "cash"))
	assert.True(t, strings.HasPrefix(lines[5], "efectivo"))
}

func TestRunPaymentMethodsAgainstLedger(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok", "exp": time.Now().Add(time.Hour).Unix()})
	})
	mux.HandleFunc("/api/payment-methods", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"id":"1","attributes":{"code":"cash","name":"Efectivo","active":true}},
			{"id":"2","attributes":{"code":"rappi","name":"Delivery Rappi","active":true}}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	err := runPaymentMethods(context.Background(), config.Config{
		FudoAPIURL:      srv.URL + "/api",
		FudoAuthURL:     srv.URL + "/auth",
		FudoAPIKey:      "key",
		FudoAPISecret:   "secret",
		FudoExcludedTag: "delivery",
		FudoHTTPTimeout: 5 * time.Second,
	}, &out)
	require.NoError(t, err)

	listing, resolved, found := strings.Cut(out.String(), "CASHIER KEY")
	require.True(t, found)
	assert.Contains(t, listing, "Delivery Rappi")
	assert.Contains(t, resolved, "efectivo")
	assert.NotContains(t, resolved, "rappi")
}

func TestReadTapsTogglesDisplay(t *testing.T) {
	var sent []screen.Message
	display := screen.NewDisplay(screen.DisplayDeps{
		Send: func(m screen.Message) { sent = append(sent, m) },
	})
	display.Handle(screen.Message{
		Type:        screen.TypeShowToppings,
		ItemID:      "i1",
		ProductName: "Cortado",
		Selected:    map[string]int{},
	})

	readTaps(strings.NewReader("on x\nbogus\noff x\n"), display)

	require.Len(t, sent, 2)
	assert.True(t, sent[0].Active)
	assert.False(t, sent[1].Active)
	assert.Equal(t, "x", sent[1].OptionID)
}

func TestViewPrinterWritesJSONLines(t *testing.T) {
	var out bytes.Buffer
	p := &viewPrinter{out: &out}

	p.print(screen.DisplayView{State: screen.StateWaiting, Items: nil})

	var view map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, "waiting", view["state"])
}
