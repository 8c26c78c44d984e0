/*
Package davinci drives server-directed, multi-step authentication flows of the
DaVinci / Journey kind: the client posts what the user entered and the server
answers with a JSON document describing the next step, until the flow ends
in success, a recoverable error or a failure.

# Concept

Each response is classified into one node. A ContinueNode carries an ordered
list of collectors, one per server field, built by a registry from the field
type. The caller fills the collectors and calls Next; the workflow turns them
back into a request, runs the interceptor chain, sends it and classifies the
answer. Terminal nodes are ErrorNode, FailureNode and SuccessNode.

# Key Features

  - Extensible field types: plugins register collector factories by type tag.
  - Step context: ContextAware collectors see their step and the workflow.
  - Interceptors: ordered request and response hooks, plus a single-claim
    override for plugins that resume the flow with their own request.
  - Safe progress: the current node changes only after a successful round
    trip, and each step has at most one submission in flight.

# Usage

	wf, err := davinci.New(davinci.Config{
		BaseURL:  "https://auth.example.com/env-id",
		ClientID: "my-client",
	})
	if err != nil {
		log.Fatal(err)
	}

	n, err := wf.Start(ctx)
	for err == nil {
		step, ok := n.(*node.ContinueNode)
		if !ok {
			break
		}
		_ = step.SetValue("username", "demo")
		_ = step.SetValue("password", secret)
		n, err = step.Next(ctx)
	}

	if s, ok := n.(*node.SuccessNode); ok {
		fmt.Println("token:", s.User().Token)
	}
*/
package davinci
