// Package discord connects the board to Discord: the Ingress turns gateway reaction
// events into snapshots and the Publisher writes board entries through a channel webhook.
package discord
