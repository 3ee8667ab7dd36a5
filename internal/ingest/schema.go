package ingest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"building_telemetry/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed event.schema.json
var eventSchemaDoc []byte

const eventSchemaURL = "event.schema.json"

// ErrInvalidEvent marks payloads that are not a well-formed telemetry event.
var ErrInvalidEvent = errors.New("invalid telemetry event")

// Parser validates raw event payloads and turns them into packets.
type Parser struct {
	schema *jsonschema.Schema
}

// NewParser compiles the embedded event schema.
func NewParser() (*Parser, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(eventSchemaDoc))
	if err != nil {
		return nil, fmt.Errorf("unmarshal event schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(eventSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add event schema: %w", err)
	}
	s, err := c.Compile(eventSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile event schema: %w", err)
	}
	return &Parser{schema: s}, nil
}

// Parse validates one JSON event against the schema and decodes it.
func (p *Parser) Parse(payload []byte) (models.RawPacket, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return models.RawPacket{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := p.schema.Validate(inst); err != nil {
		return models.RawPacket{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	var pkt models.RawPacket
	if err := json.Unmarshal(payload, &pkt); err != nil {
		return models.RawPacket{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	pkt.Timestamp = pkt.Timestamp.UTC()
	return pkt, nil
}
