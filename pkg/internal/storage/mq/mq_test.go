package mq

import (
	"testing"

	"github.com/yeisme/filegate/pkg/configs"
)

func TestRegisteredMQTypes(t *testing.T) {
	types := GetRegisteredMQTypes()

	found := map[configs.MQType]bool{}
	for _, typ := range types {
		found[typ] = true
	}

	if !found[configs.MQTypeNATS] {
		t.Error("nats factory not registered")
	}

	if !found[configs.MQTypeRedis] {
		t.Error("redis factory not registered")
	}
}
