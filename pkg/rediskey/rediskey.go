package rediskey

import "fmt"

// Client keys (global convention across services)
const (
	ClientPrefix        = "client"
	ClientSummaryPrefix = "client:summary"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildClientSummaryKey returns "client:summary:{clientID}"
func BuildClientSummaryKey(clientID string) string {
	return NamespaceKey(ClientSummaryPrefix, clientID)
}
