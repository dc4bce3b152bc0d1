package model

import (
    "encoding/json"
    "testing"
)

func TestEmpty_SerializesToNullData(t *testing.T) {
    b, err := json.Marshal(Empty())
    if err != nil {
        t.Fatalf("marshal: %v", err)
    }
    if string(b) != `{"data":null}` {
        t.Fatalf("got %s", b)
    }
}

func TestResult_CarriesPayload(t *testing.T) {
    b, err := json.Marshal(Result[[]string]{Data: []string{"cat"}})
    if err != nil {
        t.Fatalf("marshal: %v", err)
    }
    if string(b) != `{"data":["cat"]}` {
        t.Fatalf("got %s", b)
    }
}
