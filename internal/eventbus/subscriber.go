package eventbus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Inbound subjects.
const (
	SubjectAlertsAcknowledge = "alerts.acknowledge"
	SubjectAlertsResolve     = "alerts.resolve"
)

// AlertRequest is the payload of an inbound alert lifecycle request.
type AlertRequest struct {
	AlertID string `json:"alert_id"`
}

// AlertReply answers request/reply style lifecycle messages.
type AlertReply struct {
	AlertID string `json:"alert_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// AlertProcessor applies lifecycle transitions. Both return false for an
// unknown alert id.
type AlertProcessor interface {
	Acknowledge(id string) bool
	Resolve(id string) bool
}

type Subscriber struct {
	conn           *nats.Conn
	acknowledgeSub *nats.Subscription
	resolveSub     *nats.Subscription
	processor      AlertProcessor
}

func NewSubscriber(natsURL string, processor AlertProcessor) (*Subscriber, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)

	if err != nil {
		return nil, err
	}

	log.Printf("Monitor (Sub) connected to NATS at %s", natsURL)

	return &Subscriber{
		conn:      conn,
		processor: processor,
	}, nil
}

func (s *Subscriber) Start() error {
	var err error

	log.Printf("Subscribing to '%s'", SubjectAlertsAcknowledge)
	s.acknowledgeSub, err = s.conn.Subscribe(SubjectAlertsAcknowledge, s.handleMessage)
	if err != nil {
		return err
	}

	log.Printf("Subscribing to '%s'", SubjectAlertsResolve)
	s.resolveSub, err = s.conn.Subscribe(SubjectAlertsResolve, s.handleMessage)
	if err != nil {
		return err
	}

	log.Printf("Subscribed to alert lifecycle requests")
	return nil
}

func (s *Subscriber) handleMessage(msg *nats.Msg) {
	reply := HandleAlertRequest(s.processor, msg.Subject, msg.Data)

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		log.Printf("Failed to marshal alert reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Printf("Failed to respond to %s: %v", msg.Subject, err)
	}
}

// HandleAlertRequest decodes one lifecycle request and applies it.
func HandleAlertRequest(processor AlertProcessor, subject string, data []byte) AlertReply {
	var req AlertRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("Failed to unmarshal %s request: %v", subject, err)
		return AlertReply{Error: fmt.Sprintf("invalid payload: %v", err)}
	}
	if req.AlertID == "" {
		return AlertReply{Error: "alert_id is required"}
	}

	var ok bool
	switch subject {
	case SubjectAlertsAcknowledge:
		ok = processor.Acknowledge(req.AlertID)
	case SubjectAlertsResolve:
		ok = processor.Resolve(req.AlertID)
	default:
		return AlertReply{AlertID: req.AlertID, Error: "unsupported subject " + subject}
	}

	if !ok {
		log.Printf("Alert %s not found for %s", req.AlertID, subject)
		return AlertReply{AlertID: req.AlertID, Error: "alert not found"}
	}

	log.Printf("Applied %s to alert %s", subject, req.AlertID)
	return AlertReply{AlertID: req.AlertID, OK: true}
}

func (s *Subscriber) Close() {
	if s.acknowledgeSub != nil {
		_ = s.acknowledgeSub.Unsubscribe()
	}
	if s.resolveSub != nil {
		_ = s.resolveSub.Unsubscribe()
	}
	if s.conn != nil {
		s.conn.Close()
		log.Println("Monitor (Sub) disconnected from NATS")
	}
}
