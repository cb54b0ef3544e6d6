package ipset

import "strings"

// Method is the storage strategy of a set.
type Method int

const (
	MethodBitmap Method = iota
	MethodHash
	MethodList
)

func (m Method) String() string {
	switch m {
	case MethodBitmap:
		return "bitmap"
	case MethodHash:
		return "hash"
	case MethodList:
		return "list"
	}
	return "unknown"
}

type dataKind int

const (
	kindIP dataKind = iota
	kindNet
	kindMac
	kindPort
	kindIface
	kindMark
	kindSet
)

func (k dataKind) name() string {
	switch k {
	case kindIP:
		return "ip"
	case kindNet:
		return "net"
	case kindMac:
		return "mac"
	case kindPort:
		return "port"
	case kindIface:
		return "iface"
	case kindMark:
		return "mark"
	case kindSet:
		return "set"
	}
	return "unknown"
}

func (k dataKind) zero() DataType {
	switch k {
	case kindIP:
		return &IP{}
	case kindNet:
		return &Net{}
	case kindMac:
		return &Mac{}
	case kindPort:
		return new(Port)
	case kindIface:
		return new(Iface)
	case kindMark:
		return new(Mark)
	case kindSet:
		return new(SetMember)
	}
	return nil
}

// SetType binds a storage method to the data composition stored per
// element. Only the package-level values below exist; the internals are
// unexported so an unsupported combination cannot be constructed.
type SetType struct {
	method Method
	kinds  []dataKind
}

// The fixed enumeration of supported set types.
var (
	BitmapIP       = SetType{MethodBitmap, []dataKind{kindIP}}
	BitmapIPMac    = SetType{MethodBitmap, []dataKind{kindIP, kindMac}}
	BitmapPort     = SetType{MethodBitmap, []dataKind{kindPort}}
	HashIP         = SetType{MethodHash, []dataKind{kindIP}}
	HashMac        = SetType{MethodHash, []dataKind{kindMac}}
	HashIPMac      = SetType{MethodHash, []dataKind{kindIP, kindMac}}
	HashNet        = SetType{MethodHash, []dataKind{kindNet}}
	HashNetNet     = SetType{MethodHash, []dataKind{kindNet, kindNet}}
	HashIPPort     = SetType{MethodHash, []dataKind{kindIP, kindPort}}
	HashNetPort    = SetType{MethodHash, []dataKind{kindNet, kindPort}}
	HashIPPortIP   = SetType{MethodHash, []dataKind{kindIP, kindPort, kindIP}}
	HashIPPortNet  = SetType{MethodHash, []dataKind{kindIP, kindPort, kindNet}}
	HashIPMark     = SetType{MethodHash, []dataKind{kindIP, kindMark}}
	HashNetPortNet = SetType{MethodHash, []dataKind{kindNet, kindPort, kindNet}}
	HashNetIface   = SetType{MethodHash, []dataKind{kindNet, kindIface}}
	ListSet        = SetType{MethodList, []dataKind{kindSet}}
)

// Types lists every supported set type.
func Types() []SetType {
	return []SetType{
		BitmapIP, BitmapIPMac, BitmapPort,
		HashIP, HashMac, HashIPMac, HashNet, HashNetNet,
		HashIPPort, HashNetPort, HashIPPortIP, HashIPPortNet,
		HashIPMark, HashNetPortNet, HashNetIface,
		ListSet,
	}
}

// TypeByName resolves a method:type identifier like "hash:ip,port".
func TypeByName(name string) (SetType, bool) {
	for _, t := range Types() {
		if t.Name() == name {
			return t, true
		}
	}
	return SetType{}, false
}

// Method returns the storage method.
func (t SetType) Method() Method {
	return t.method
}

// Name returns the canonical method:type identifier passed to the
// create command, e.g. "hash:ip,port,net".
func (t SetType) Name() string {
	return t.method.String() + ":" + t.dataName()
}

func (t SetType) dataName() string {
	parts := make([]string, len(t.kinds))
	for i, k := range t.kinds {
		parts[i] = k.name()
	}
	return strings.Join(parts, ",")
}

// NewData returns the zero element composition for the type, ready for
// parsing a member text form.
func (t SetType) NewData() DataType {
	switch len(t.kinds) {
	case 1:
		return t.kinds[0].zero()
	case 2:
		return NewPair(t.kinds[0].zero(), t.kinds[1].zero())
	case 3:
		return NewTriple(t.kinds[0].zero(), t.kinds[1].zero(), t.kinds[2].zero())
	}
	return nil
}

// ParseData parses the text form of one element of this type.
func (t SetType) ParseData(s string) (DataType, error) {
	d := t.NewData()
	if err := d.parse(s); err != nil {
		return nil, err
	}
	return d, nil
}

func (t SetType) hasNet() bool {
	for _, k := range t.kinds {
		if k == kindNet {
			return true
		}
	}
	return false
}
