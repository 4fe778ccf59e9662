package consul

import (
	"fmt"
	"os"

	consulapi "github.com/hashicorp/consul/api"
)

// CreateConsulClient connects to the agent named by CONSUL_HTTP_ADDR.
func CreateConsulClient() (*consulapi.Client, error) {
	config := consulapi.DefaultConfig()
	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return client, nil
}

// RegisterService registers this service instance with consul so the
// gateway can discover it.
func RegisterService(client *consulapi.Client, serviceName string, port int) error {
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}

	registration := &consulapi.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s", serviceName, hostname),
		Name:    serviceName,
		Port:    port,
		Address: hostname,
	}
	if err := client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service %s: %w", serviceName, err)
	}
	return nil
}
