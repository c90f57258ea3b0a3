package api

import "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"

// Envelope is the response shape shared by the remote endpoints. A missing
// collection key decodes to a nil slice, which callers treat as empty.
type Envelope struct {
	Users    []entity.User     `json:"users"`
	Products []entity.Product  `json:"products"`
	Cart     []entity.CartItem `json:"cart"`
	Orders   []entity.Order    `json:"orders"`
	User     *entity.User      `json:"user"`
	Product  *entity.Product   `json:"product"`
	Order    *entity.Order     `json:"order"`
	Token    string            `json:"token,omitempty"`
	Message  string            `json:"message,omitempty"`
}
