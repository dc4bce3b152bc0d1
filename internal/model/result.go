package model

// Result is the envelope every endpoint answers with.  Data holds the
// payload; endpoints without one use Result[any] with a nil Data, which
// renders as {"data":null}.
type Result[T any] struct {
    Data T `json:"data"`
}

// Empty is the payload-less envelope returned by the root route.
func Empty() Result[any] { return Result[any]{} }
