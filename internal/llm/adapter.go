package llm

import "context"

// Adapter issues single-prompt calls against a fixed set of models.
type Adapter struct {
	clients map[string]Client
}

func NewAdapter(clients map[string]Client) *Adapter {
	cp := make(map[string]Client, len(clients))
	for k, v := range clients {
		cp[k] = v
	}
	return &Adapter{clients: cp}
}

// Call sends prompt as a single user message to model. The prompt is
// forwarded as-is. Any failure is returned as *Error.
func (a *Adapter) Call(ctx context.Context, prompt, model string) (Response, error) {
	c, ok := a.clients[model]
	if !ok {
		return Response{}, unknownModel(model)
	}
	resp, err := c.Generate(ctx, []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return Response{}, AsError(model, err)
	}
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}
