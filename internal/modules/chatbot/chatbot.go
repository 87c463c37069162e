package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wasentry/internal/envelope"
	"wasentry/internal/store"
	"wasentry/internal/transport"
	"wasentry/internal/utils"

	"go.uber.org/zap"
)

const Feature = "chatbot"

const globalKey = "global"

type Config struct {
	Enabled bool `json:"enabled"`
}

type apiRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

type apiResponse struct {
	Reply string `json:"reply"`
}

// Module answers direct messages through a configurable HTTP endpoint.
// It never runs in groups and only when no command matched.
type Module struct {
	store    *store.Store
	tr       transport.Transport
	client   *http.Client
	endpoint string
	retries  int
	logger   *zap.Logger
}

func New(st *store.Store, tr transport.Transport, endpoint string, timeout time.Duration, retries int, logger *zap.Logger) *Module {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retries <= 0 {
		retries = 3
	}
	return &Module{
		store:    st,
		tr:       tr,
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		retries:  retries,
		logger:   logger,
	}
}

func (m *Module) Enabled() bool {
	return store.Get[Config](m.store, Feature, globalKey).Enabled
}

func (m *Module) SetEnabled(on bool) {
	store.Update(m.store, Feature, globalKey, func(c *Config) { c.Enabled = on })
}

func (m *Module) Handle(ctx context.Context, env envelope.Envelope) {
	if env.IsGroup || env.FromMe || env.Text == "" || m.endpoint == "" {
		return
	}
	if !m.Enabled() {
		return
	}

	reply, err := m.ask(ctx, env.Text, env.Sender.User)
	if err != nil {
		m.logger.Warn("chatbot request failed", zap.String("sender", env.Sender.String()), zap.Error(err))
		return
	}
	if reply == "" {
		return
	}
	if err := m.tr.SendText(ctx, env.Chat, reply); err != nil {
		m.logger.Warn("chatbot reply failed", zap.String("chat", env.Chat.String()), zap.Error(err))
	}
}

func (m *Module) ask(ctx context.Context, message, sender string) (string, error) {
	payload, err := json.Marshal(apiRequest{Message: message, Sender: sender})
	if err != nil {
		return "", err
	}

	var reply string
	err = utils.Retry(ctx, m.retries, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("chatbot endpoint returned %d", resp.StatusCode)
		}
		var out apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		reply = out.Reply
		return nil
	})
	return reply, err
}
