package ipset

import "testing"

func TestTypeNames(t *testing.T) {
	expect := map[string]SetType{
		"bitmap:ip":         BitmapIP,
		"bitmap:ip,mac":     BitmapIPMac,
		"bitmap:port":       BitmapPort,
		"hash:ip":           HashIP,
		"hash:mac":          HashMac,
		"hash:ip,mac":       HashIPMac,
		"hash:net":          HashNet,
		"hash:net,net":      HashNetNet,
		"hash:ip,port":      HashIPPort,
		"hash:net,port":     HashNetPort,
		"hash:ip,port,ip":   HashIPPortIP,
		"hash:ip,port,net":  HashIPPortNet,
		"hash:ip,mark":      HashIPMark,
		"hash:net,port,net": HashNetPortNet,
		"hash:net,iface":    HashNetIface,
		"list:set":          ListSet,
	}

	if len(Types()) != len(expect) {
		t.Fatalf("Types() has %d entries, want %d", len(Types()), len(expect))
	}
	for name, typ := range expect {
		if typ.Name() != name {
			t.Errorf("Name() = %q, want %q", typ.Name(), name)
		}
		resolved, ok := TypeByName(name)
		if !ok {
			t.Errorf("TypeByName(%q) not found", name)
			continue
		}
		if resolved.Name() != name {
			t.Errorf("TypeByName(%q) resolved to %q", name, resolved.Name())
		}
	}

	if _, ok := TypeByName("hash:frob"); ok {
		t.Error("TypeByName accepted an unknown name")
	}
}

func TestTypeMethods(t *testing.T) {
	if BitmapIP.Method() != MethodBitmap {
		t.Error("bitmap:ip method mismatch")
	}
	if HashNetIface.Method() != MethodHash {
		t.Error("hash:net,iface method mismatch")
	}
	if ListSet.Method() != MethodList {
		t.Error("list:set method mismatch")
	}
}

func TestNewDataShapes(t *testing.T) {
	for _, typ := range Types() {
		data := typ.NewData()
		if data == nil {
			t.Errorf("%s: NewData returned nil", typ.Name())
			continue
		}
		if data.typeName() != typ.dataName() {
			t.Errorf("%s: data type %q does not match %q", typ.Name(), data.typeName(), typ.dataName())
		}
	}
}

func TestParseDataPerType(t *testing.T) {
	cases := []struct {
		typ SetType
		in  string
	}{
		{BitmapIP, "10.0.0.1"},
		{BitmapIPMac, "10.0.0.1,aa:bb:cc:dd:ee:ff"},
		{BitmapPort, "8080"},
		{HashMac, "aa:bb:cc:dd:ee:ff"},
		{HashNet, "10.0.0.0/8"},
		{HashNetNet, "10.0.0.0/8,192.168.0.0/16"},
		{HashIPPortIP, "1.1.1.1,53,8.8.8.8"},
		{HashIPMark, "10.0.0.1,42"},
		{HashNetIface, "10.0.0.0/8,eth0"},
		{ListSet, "other-set"},
	}

	for _, c := range cases {
		data, err := c.typ.ParseData(c.in)
		if err != nil {
			t.Errorf("%s: ParseData(%q): %v", c.typ.Name(), c.in, err)
			continue
		}
		if data.String() != c.in {
			t.Errorf("%s: round trip %q -> %q", c.typ.Name(), c.in, data.String())
		}
	}
}

func TestHasNet(t *testing.T) {
	for _, c := range []struct {
		typ SetType
		net bool
	}{
		{HashIP, false},
		{HashNet, true},
		{HashIPPortNet, true},
		{ListSet, false},
	} {
		if c.typ.hasNet() != c.net {
			t.Errorf("%s: hasNet = %v, want %v", c.typ.Name(), c.typ.hasNet(), c.net)
		}
	}
}
