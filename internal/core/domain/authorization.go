package domain

// Resource identifies the object an action is requested on.
type Resource struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// AuthorizationRequest is built fresh for every gated action and never stored.
type AuthorizationRequest struct {
	Principal Principal
	Resource  Resource
	Action    string
}

// Decision is the policy engine verdict for a single action.
type Decision struct {
	Action  string `json:"action"`
	Allowed bool   `json:"isAllowed"`
}
