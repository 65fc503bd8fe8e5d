package lib

import (
	"context"
	"encoding/json"
	"fleetbook/src/types"
	"fmt"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig(clientID string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         clientID,
		"acks":              "all",
	}
}

func KafkaProduceMessage(clientID string, topic string, payload *types.JSONB) error {
	cfg := GetKafkaProducerConfig(clientID)
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("Error creating producer %s: %s\n", clientID, err.Error())
		return err
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil)
	if err != nil {
		log.Printf("Error producing message on %s: %s\n", topic, err.Error())
		return err
	}
	return nil
}

// KafkaConsume polls the topics in a background goroutine and hands every
// message body to the handler.
func KafkaConsume(groupID string, topics []string, handler types.Handler) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"group.id":          groupID,
		"auto.offset.reset": "smallest",
		"retry.backoff.ms":  100,
	})
	if err != nil {
		log.Printf("Error creating consumer %s: %s\n", groupID, err.Error())
		return
	}
	if err := consumer.SubscribeTopics(topics, nil); err != nil {
		log.Printf("Error subscribing consumer %s: %s\n", groupID, err.Error())
		return
	}
	go func() {
		log.Printf("[%s]: waiting for messages...\n", groupID)
		run := true
		for run {
			ev := consumer.Poll(100)
			switch e := ev.(type) {
			case *kafka.Message:
				handler(string(e.Value))
			case kafka.Error:
				fmt.Fprintf(os.Stderr, "%% Error: %v\n", e)
				run = false
			}
		}
		consumer.Close()
	}()
}

func KafkaCreateTopics(topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
	})
	if err != nil {
		log.Printf("Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:         topic,
			NumPartitions: 10,
		})
	}
	result, err := a.CreateTopics(context.Background(), topicsDef)
	if err != nil {
		log.Printf("Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}
