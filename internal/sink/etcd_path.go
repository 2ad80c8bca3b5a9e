package sink

import "strings"

// keyForTopic maps a topic onto the etcd keyspace under prefix.
func keyForTopic(prefix, topic string) string {
	prefix = strings.TrimRight(prefix, "/")
	return prefix + "/" + strings.TrimLeft(topic, "/")
}

// topicFromKey is the inverse of keyForTopic.
func topicFromKey(prefix, key string) string {
	prefix = strings.TrimRight(prefix, "/")
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}
