package vm

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Compiled files: the on-disk form of compiled methods
// ---------------------------------------------------------------------------
//
// A compiled file is three header lines followed by a CBOR body:
//
//	!GRNC\n
//	<version>\n
//	<hex sha-256 of the body>\n
//	<canonical CBOR>
//
// The body is encoded canonically so the digest doubles as a content
// address. Static scopes are not carried on the wire; the loader binds
// them when it attaches methods to modules.

const (
	// CompiledFileMagic is the first header line.
	CompiledFileMagic = "!GRNC"

	// CompiledFileVersion is the current container version.
	CompiledFileVersion = 1
)

// cborEncMode encodes canonically for deterministic bodies.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Wire literal kinds.
const (
	wireNil    = "nil"
	wireTrue   = "true"
	wireFalse  = "false"
	wireInt    = "int"
	wireFloat  = "float"
	wireSymbol = "symbol"
)

type wireLiteral struct {
	Kind  string  `cbor:"k"`
	Int   int64   `cbor:"i,omitempty"`
	Float float64 `cbor:"f,omitempty"`
	Name  string  `cbor:"n,omitempty"`
}

type wireMethod struct {
	Name         string        `cbor:"name"`
	File         string        `cbor:"file,omitempty"`
	Opcodes      []uint32      `cbor:"opcodes"`
	Literals     []wireLiteral `cbor:"literals"`
	SendSites    []string      `cbor:"send_sites"`
	RequiredArgs int           `cbor:"required_args"`
	TotalArgs    int           `cbor:"total_args"`
	LocalCount   int           `cbor:"local_count"`
	StackSize    int           `cbor:"stack_size"`
	Splat        int           `cbor:"splat"`
	Serial       int           `cbor:"serial"`
}

type wireBody struct {
	Methods []wireMethod `cbor:"methods"`
}

func literalToWire(v Value, syms *SymbolTable) (wireLiteral, error) {
	switch {
	case v == Nil:
		return wireLiteral{Kind: wireNil}, nil
	case v == True:
		return wireLiteral{Kind: wireTrue}, nil
	case v == False:
		return wireLiteral{Kind: wireFalse}, nil
	case v.IsSmallInt():
		return wireLiteral{Kind: wireInt, Int: v.SmallInt()}, nil
	case v.IsSymbol():
		return wireLiteral{Kind: wireSymbol, Name: syms.Name(v.SymbolID())}, nil
	case v.IsFloat():
		return wireLiteral{Kind: wireFloat, Float: v.Float64()}, nil
	default:
		return wireLiteral{}, fmt.Errorf("vm: literal kind not encodable")
	}
}

func literalFromWire(w wireLiteral, syms *SymbolTable) (Value, error) {
	switch w.Kind {
	case wireNil:
		return Nil, nil
	case wireTrue:
		return True, nil
	case wireFalse:
		return False, nil
	case wireInt:
		return FromSmallInt(w.Int), nil
	case wireFloat:
		return FromFloat64(w.Float), nil
	case wireSymbol:
		return FromSymbol(syms.Intern(w.Name)), nil
	default:
		return Nil, fmt.Errorf("vm: unknown literal kind %q", w.Kind)
	}
}

func methodToWire(cm *CompiledMethod, syms *SymbolTable) (wireMethod, error) {
	w := wireMethod{
		Name:         cm.MethodName,
		File:         cm.File,
		Opcodes:      cm.Opcodes,
		RequiredArgs: cm.RequiredArgs,
		TotalArgs:    cm.TotalArgs,
		LocalCount:   cm.LocalCount,
		StackSize:    cm.StackSize,
		Splat:        cm.Splat,
		Serial:       cm.Serial,
	}
	w.Literals = make([]wireLiteral, len(cm.Literals))
	for i, lit := range cm.Literals {
		wl, err := literalToWire(lit, syms)
		if err != nil {
			return wireMethod{}, fmt.Errorf("%s literal %d: %w", cm.MethodName, i, err)
		}
		w.Literals[i] = wl
	}
	w.SendSites = make([]string, len(cm.SendSites))
	for i, site := range cm.SendSites {
		w.SendSites[i] = syms.Name(site.Name)
	}
	return w, nil
}

func methodFromWire(w wireMethod, syms *SymbolTable) (*CompiledMethod, error) {
	cm := &CompiledMethod{
		MethodName:   w.Name,
		File:         w.File,
		Opcodes:      w.Opcodes,
		RequiredArgs: w.RequiredArgs,
		TotalArgs:    w.TotalArgs,
		LocalCount:   w.LocalCount,
		StackSize:    w.StackSize,
		Splat:        w.Splat,
		Serial:       w.Serial,
	}
	cm.Literals = make([]Value, len(w.Literals))
	for i, wl := range w.Literals {
		v, err := literalFromWire(wl, syms)
		if err != nil {
			return nil, fmt.Errorf("%s literal %d: %w", w.Name, i, err)
		}
		cm.Literals[i] = v
	}
	cm.SendSites = make([]*SendSite, len(w.SendSites))
	for i, name := range w.SendSites {
		cm.SendSites[i] = NewSendSite(syms.Intern(name))
	}
	return cm, nil
}

// WriteCompiledFile encodes methods to w in the compiled-file format.
func WriteCompiledFile(w io.Writer, methods []*CompiledMethod, syms *SymbolTable) error {
	body := wireBody{Methods: make([]wireMethod, len(methods))}
	for i, cm := range methods {
		wm, err := methodToWire(cm, syms)
		if err != nil {
			return fmt.Errorf("vm: encode compiled file: %w", err)
		}
		body.Methods[i] = wm
	}

	data, err := cborEncMode.Marshal(&body)
	if err != nil {
		return fmt.Errorf("vm: encode compiled file: %w", err)
	}
	sum := sha256.Sum256(data)

	if _, err := fmt.Fprintf(w, "%s\n%d\n%s\n", CompiledFileMagic,
		CompiledFileVersion, hex.EncodeToString(sum[:])); err != nil {
		return fmt.Errorf("vm: write compiled file: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("vm: write compiled file: %w", err)
	}
	return nil
}

// ReadCompiledFile decodes a compiled file, verifying the magic, the
// version, and the body digest. Selectors are interned into syms.
func ReadCompiledFile(r io.Reader, syms *SymbolTable) ([]*CompiledMethod, error) {
	br := bufio.NewReader(r)

	magic, err := readHeaderLine(br)
	if err != nil {
		return nil, err
	}
	if magic != CompiledFileMagic {
		return nil, fmt.Errorf("vm: bad compiled-file magic %q", magic)
	}

	verLine, err := readHeaderLine(br)
	if err != nil {
		return nil, err
	}
	version, err := strconv.Atoi(verLine)
	if err != nil || version != CompiledFileVersion {
		return nil, fmt.Errorf("vm: unsupported compiled-file version %q", verLine)
	}

	sumLine, err := readHeaderLine(br)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("vm: read compiled file: %w", err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != sumLine {
		return nil, fmt.Errorf("vm: compiled-file digest mismatch")
	}

	var body wireBody
	if err := cbor.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("vm: decode compiled file: %w", err)
	}

	methods := make([]*CompiledMethod, len(body.Methods))
	for i, wm := range body.Methods {
		cm, err := methodFromWire(wm, syms)
		if err != nil {
			return nil, fmt.Errorf("vm: decode compiled file: %w", err)
		}
		methods[i] = cm
	}
	return methods, nil
}

func readHeaderLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("vm: read compiled-file header: %w", err)
	}
	return line[:len(line)-1], nil
}

// ContentHash returns the SHA-256 of a method's canonical encoding,
// used as its content address.
func ContentHash(cm *CompiledMethod, syms *SymbolTable) ([32]byte, error) {
	wm, err := methodToWire(cm, syms)
	if err != nil {
		return [32]byte{}, err
	}
	data, err := cborEncMode.Marshal(&wm)
	if err != nil {
		return [32]byte{}, fmt.Errorf("vm: hash method: %w", err)
	}
	return sha256.Sum256(data), nil
}
