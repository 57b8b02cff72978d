package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type ledgerDoc struct {
	Amount decimal.Decimal `bson:"amount"`
}

func TestDecimalCodec_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	in := ledgerDoc{Amount: decimal.RequireFromString("1234.5678")}

	data, err := bson.MarshalWithRegistry(reg, in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if typ := bson.Raw(data).Lookup("amount").Type; typ != bsontype.Decimal128 {
		t.Fatalf("stored as %v, want decimal128", typ)
	}

	var out ledgerDoc
	if err := bson.UnmarshalWithRegistry(reg, data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Amount.Equal(in.Amount) {
		t.Errorf("amount = %s, want %s", out.Amount, in.Amount)
	}
}

func TestDecimalCodec_LegacyValues(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"double", 12.5, "12.5"},
		{"int32", int32(300), "300"},
		{"int64", int64(10000), "10000"},
		{"string", "0.05", "0.05"},
		{"null", nil, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(bson.M{"amount": tt.value})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var out ledgerDoc
			if err := bson.UnmarshalWithRegistry(NewRegistry(), data, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !out.Amount.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("amount = %s, want %s", out.Amount, tt.want)
			}
		})
	}
}

func TestDecimalCodec_RejectsOtherTypes(t *testing.T) {
	data, err := bson.Marshal(bson.M{"amount": true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out ledgerDoc
	if err := bson.UnmarshalWithRegistry(NewRegistry(), data, &out); err == nil {
		t.Error("boolean decoded into a decimal")
	}
}
