package fudo

// The ledger speaks a JSON:API flavoured dialect: every payload is a
// resource object wrapped in a data envelope.

type relationship struct {
	Data resourceRef `json:"data"`
}

type resourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

type document struct {
	Data resource `json:"data"`
}

type createdDocument struct {
	Data struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
}

func rel(kind, id string) relationship {
	return relationship{Data: resourceRef{Type: kind, ID: id}}
}
