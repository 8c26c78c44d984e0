/*
Package ports defines the driven ports (interfaces) of the flow engine.

These interfaces decouple the workflow from external implementations, allowing
it to run against a real DaVinci tenant, a scripted mock server or an
in-process fake, and to keep tokens in memory, Redis or an encrypted store.

# Key Interfaces

  - Transport: performs the HTTP round trip of a step submission.
  - TokenStore: persists the authenticated user handle between runs.
  - DistributedLocker: serializes token writes across replicas.
*/
package ports
