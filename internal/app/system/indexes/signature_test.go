package indexes

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestSignature(t *testing.T) {
	keys := bson.D{{Key: "period", Value: 1}, {Key: "kind", Value: -1}}
	if got := signature(keys); got != "period:1,kind:-1" {
		t.Errorf("signature() = %q", got)
	}
	if signature(nil) != "" {
		t.Error("empty keys should have empty signature")
	}
}
