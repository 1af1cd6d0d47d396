package config

import (
	"log"

	"github.com/redis/rueidis"
)

// NewRedisClient builds the client backing the distributed claim guard.
// Only needed when more than one node serves the same worker pool.
func NewRedisClient(addr string) rueidis.Client {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
		ClientName:  "workbench",
	})
	if err != nil {
		log.Fatalf("failed to create redis client: %v", err)
	}

	return client
}
