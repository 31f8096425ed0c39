// Package node implements the NodeService port against a remote ledger node
// exposing a REST api for queries and a websocket endpoint for push topics.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tanglenet/wallet-daemon/internal/core/domain"
	"github.com/tanglenet/wallet-daemon/internal/core/ports"
	"github.com/tanglenet/wallet-daemon/pkg/circuitbreaker"
)

const defaultRequestTimeout = 15 * time.Second

// Opts defines the parameters needed for creating a node service with
// NewService.
type Opts struct {
	// APIURL is the base url of the node REST api.
	APIURL string
	// WSURL is the url of the node websocket endpoint.
	WSURL string
	// RequestTimeout bounds every REST request. Zero means the default of 15s.
	RequestTimeout time.Duration
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type topicEnvelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type subscriptionRequest struct {
	ClientID string `json:"clientId"`
	Command  string `json:"command"`
	Topic    string `json:"topic"`
}

type service struct {
	apiURL     string
	wsURL      string
	clientID   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	mtx      sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]ports.TopicHandler
}

// NewService returns a NodeService talking to the node at the given
// endpoints. REST fetches are wrapped in a circuit breaker so that a
// misbehaving node fails fast instead of piling up blocked reconciliations.
func NewService(opts Opts) ports.NodeService {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &service{
		apiURL:   opts.APIURL,
		wsURL:    opts.WSURL,
		clientID: uuid.New().String(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker:  circuitbreaker.NewCircuitBreaker("node"),
		handlers: map[string][]ports.TopicHandler{},
	}
}

func (s *service) GetBalance(
	ctx context.Context, addresses []string,
) (map[string]uint64, error) {
	balances := make(map[string]uint64, len(addresses))
	for _, address := range addresses {
		body, err := s.get(ctx, fmt.Sprintf("%s/addresses/%s", s.apiURL, address))
		if err != nil {
			return nil, err
		}
		var resp balanceResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding balance for address %s: %w", address, err)
		}
		balances[address] = resp.Balance
	}
	return balances, nil
}

func (s *service) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s/messages/%s", s.apiURL, id))
	if err != nil {
		return nil, err
	}
	var message domain.Message
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, fmt.Errorf("decoding message %s: %w", id, err)
	}
	return &message, nil
}

func (s *service) Subscribe(topic string, handler ports.TopicHandler) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.ensureConn(); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(subscriptionRequest{
		ClientID: s.clientID,
		Command:  "subscribe",
		Topic:    topic,
	}); err != nil {
		return fmt.Errorf("subscribing to topic %s: %w", topic, err)
	}

	s.handlers[topic] = append(s.handlers[topic], handler)
	return nil
}

func (s *service) Unsubscribe(topics ...string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if len(topics) <= 0 {
		topics = make([]string, 0, len(s.handlers))
		for topic := range s.handlers {
			topics = append(topics, topic)
		}
	}

	for _, topic := range topics {
		delete(s.handlers, topic)
		if s.conn == nil {
			continue
		}
		if err := s.conn.WriteJSON(subscriptionRequest{
			ClientID: s.clientID,
			Command:  "unsubscribe",
			Topic:    topic,
		}); err != nil {
			return fmt.Errorf("unsubscribing from topic %s: %w", topic, err)
		}
	}

	if len(s.handlers) <= 0 && s.conn != nil {
		conn := s.conn
		s.conn = nil
		return conn.Close()
	}
	return nil
}

// ensureConn dials the websocket endpoint on first use. Must be called with
// the mutex held.
func (s *service) ensureConn() error {
	if s.conn != nil {
		return nil
	}
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing node websocket endpoint: %w", err)
	}
	s.conn = conn
	go s.readLoop(conn)
	return nil
}

func (s *service) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mtx.Lock()
			if s.conn == conn {
				s.conn = nil
				log.Warnf("node: websocket connection dropped: %s", err)
			}
			s.mtx.Unlock()
			return
		}

		var envelope topicEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			log.Warnf("node: discarding malformed topic message: %s", err)
			continue
		}

		s.mtx.Lock()
		handlers := make([]ports.TopicHandler, len(s.handlers[envelope.Topic]))
		copy(handlers, s.handlers[envelope.Topic])
		s.mtx.Unlock()

		for _, handler := range handlers {
			handler(ports.TopicEvent{
				Topic:   envelope.Topic,
				Payload: envelope.Payload,
			})
		}
	}
}

func (s *service) get(ctx context.Context, url string) ([]byte, error) {
	body, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("node responded with status %d", resp.StatusCode)
		}
		return ioutil.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	return body.([]byte), nil
}
