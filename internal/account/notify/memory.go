package notify

import "sync"

// SentMessage records one successful Send through the MemoryNotifier.
type SentMessage struct {
	TemplateID string
	To         string
	Data       map[string]string
}

// MemoryNotifier is an in-process Notifier for tests. ComposeErr makes the
// hand-off fail; SendErr makes delivery fail after hand-off.
type MemoryNotifier struct {
	mu         sync.Mutex
	sent       []SentMessage
	ComposeErr error
	SendErr    error
}

func (n *MemoryNotifier) Compose(templateID, to string, data map[string]string) (Delivery, error) {
	if n.ComposeErr != nil {
		return nil, n.ComposeErr
	}
	return &memoryDelivery{parent: n, msg: SentMessage{TemplateID: templateID, To: to, Data: data}}, nil
}

// Sent returns a snapshot of delivered messages.
func (n *MemoryNotifier) Sent() []SentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]SentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}

type memoryDelivery struct {
	parent *MemoryNotifier
	msg    SentMessage
}

func (d *memoryDelivery) Send() error {
	if d.parent.SendErr != nil {
		return d.parent.SendErr
	}
	d.parent.mu.Lock()
	defer d.parent.mu.Unlock()
	d.parent.sent = append(d.parent.sent, d.msg)
	return nil
}
