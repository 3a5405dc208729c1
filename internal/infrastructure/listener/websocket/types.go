package websocket_listener

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vulpemventures/cosigner/internal/core/domain"
)

type uidMessage struct {
	UID string `json:"uid"`
}

type subscribeRequest struct {
	UID         string `json:"uid"`
	Subscribe   string `json:"subscribe,omitempty"`
	Unsubscribe string `json:"unsubscribe,omitempty"`
}

type message struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// channelPath returns the name of the node channel of the given topic for
// the given address, ie. <topic>/<address>. The block channel is not scoped
// to any address.
func channelPath(topic domain.Topic, addr domain.Address) string {
	if topic == domain.TopicBlock {
		return topic.String()
	}
	return fmt.Sprintf("%s/%s", topic, addr)
}

// parseChannelPath is the inverse of channelPath.
func parseChannelPath(path string) (domain.Topic, domain.Address, error) {
	name, addrStr, _ := strings.Cut(path, "/")
	topic, ok := domain.ParseTopic(name)
	if !ok {
		return 0, domain.Address{}, fmt.Errorf("unknown topic %s", name)
	}
	if topic == domain.TopicBlock {
		return topic, domain.Address{}, nil
	}
	addr, err := domain.ParseAddress(addrStr)
	if err != nil {
		return 0, domain.Address{}, err
	}
	return topic, addr, nil
}

// removedMessage is the payload of the unconfirmedRemoved and
// partialRemoved channels.
type removedMessage struct {
	Meta struct {
		Hash string `json:"hash"`
	} `json:"meta"`
}

// messageKey holds the fields identifying a message of any topic.
type messageKey struct {
	Meta struct {
		Hash string `json:"hash"`
	} `json:"meta"`
	Hash            string `json:"hash"`
	ParentHash      string `json:"parentHash"`
	SignerPublicKey string `json:"signerPublicKey"`
}

// dedupKey returns the key used to detect a message already delivered on the
// given channel, empty if the message can't be identified.
func dedupKey(path string, data json.RawMessage) string {
	id := messageID(data)
	if id == "" {
		return ""
	}
	return path + "|" + id
}

// messageID returns the identifier of a message regardless of the channel it
// was pushed on, empty if the message can't be identified.
func messageID(data json.RawMessage) string {
	var k messageKey
	if err := json.Unmarshal(data, &k); err != nil {
		return ""
	}

	var id string
	switch {
	case k.Meta.Hash != "":
		id = k.Meta.Hash
	case k.ParentHash != "":
		id = k.ParentHash + "/" + k.SignerPublicKey
	case k.Hash != "":
		id = k.Hash
	default:
		return ""
	}
	return strings.ToUpper(id)
}
