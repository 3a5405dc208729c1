package domain

const (
	TopicBlock Topic = iota
	TopicConfirmedAdded
	TopicUnconfirmedAdded
	TopicUnconfirmedRemoved
	TopicPartialAdded
	TopicPartialRemoved
	TopicCosignature
	TopicStatus
)

var (
	topicString = map[Topic]string{
		TopicBlock:              "block",
		TopicConfirmedAdded:     "confirmedAdded",
		TopicUnconfirmedAdded:   "unconfirmedAdded",
		TopicUnconfirmedRemoved: "unconfirmedRemoved",
		TopicPartialAdded:       "partialAdded",
		TopicPartialRemoved:     "partialRemoved",
		TopicCosignature:        "cosignature",
		TopicStatus:             "status",
	}
)

// Topic is a push channel of the node.
type Topic int

func (t Topic) String() string {
	return topicString[t]
}

// ParseTopic returns the topic with the given channel name.
func ParseTopic(name string) (Topic, bool) {
	for topic, str := range topicString {
		if str == name {
			return topic, true
		}
	}
	return 0, false
}

// NodeEvent is a notification pushed by the node for a watched address and
// republished on the application feed.
type NodeEvent struct {
	Topic       Topic
	Address     Address
	Hash        string
	Transaction *TransactionInfo
	Cosignature *CosignatureSignedTransaction
	StatusError *TransactionStatusError
}
