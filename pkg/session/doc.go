/*
Package session guards the stored user handles of authenticated workflows.

The Vault serializes reads and writes per key inside a process and, when a
DistributedLocker is configured, across replicas sharing a backing store.
*/
package session
