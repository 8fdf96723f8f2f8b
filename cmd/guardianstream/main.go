// Command guardianstream searches the Guardian content API and forwards the
// results to a Kafka topic, one invocation per event.
//
// Usage:
//
//	guardianstream invoke --event event.json [--config configs/example.yaml]
//	guardianstream serve
//	guardianstream schedule
//	guardianstream tail --queue guardian_content
package main

func main() {
	Execute()
}
