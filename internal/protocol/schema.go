package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "buildsim://schemas/"

var (
	schemasOnce sync.Once
	schemasErr  error
	helloSchema *jsonschema.Schema
	cmdSchema   *jsonschema.Schema
)

func loadSchemas() error {
	schemasOnce.Do(func() {
		comp := jsonschema.NewCompiler()
		for _, name := range []string{"hello.schema.json", "cmd.schema.json"} {
			b, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemasErr = err
				return
			}
			if err := comp.AddResource(schemaBase+name, bytes.NewReader(b)); err != nil {
				schemasErr = fmt.Errorf("%s: %w", name, err)
				return
			}
		}
		if helloSchema, schemasErr = comp.Compile(schemaBase + "hello.schema.json"); schemasErr != nil {
			return
		}
		cmdSchema, schemasErr = comp.Compile(schemaBase + "cmd.schema.json")
	})
	return schemasErr
}

func validate(s *jsonschema.Schema, raw []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// DecodeHello validates raw against the HELLO schema before decoding it.
func DecodeHello(raw []byte) (HelloMsg, error) {
	var m HelloMsg
	if err := loadSchemas(); err != nil {
		return m, err
	}
	if err := validate(helloSchema, raw); err != nil {
		return m, fmt.Errorf("hello: %w", err)
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}

// DecodeCmd validates raw against the CMD schema before decoding it.
func DecodeCmd(raw []byte) (CmdMsg, error) {
	var m CmdMsg
	if err := loadSchemas(); err != nil {
		return m, err
	}
	if err := validate(cmdSchema, raw); err != nil {
		return m, fmt.Errorf("cmd: %w", err)
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}
