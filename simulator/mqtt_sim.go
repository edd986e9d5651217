package main

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// mqttClientFactory is replaced in tests.
var mqttClientFactory = realMQTTClient

// realMQTTClient connects with a will that marks the vehicle off duty.
func realMQTTClient(broker, clientID, willTopic string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	opts.SetConnectTimeout(5 * time.Second)
	if willTopic != "" {
		opts.SetWill(willTopic, `{"online":false}`, 1, false)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
