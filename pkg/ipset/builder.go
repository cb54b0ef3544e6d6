package ipset

import "strings"

// CreateBuilder sets creation-time options on the session during a
// Create call. Setters chain; the first failure sticks and is surfaced
// through Err and by Create itself. Every setter checks that the option
// applies to the bound set type and records ErrOptionMisuse when it does
// not.
type CreateBuilder struct {
	session *Session
	err     error
}

// Err returns the first error recorded by a setter.
func (b *CreateBuilder) Err() error {
	return b.err
}

func (b *CreateBuilder) set(opt Opt, value interface{}) *CreateBuilder {
	if b.err == nil {
		b.err = setOpt(b.session.h, opt, value)
	}
	return b
}

func (b *CreateBuilder) misuse(msg string) *CreateBuilder {
	if b.err == nil {
		b.err = newError(ErrOptionMisuse, msg, true)
	}
	return b
}

func (b *CreateBuilder) requireMethod(m Method, opt string) bool {
	if b.err != nil {
		return false
	}
	if b.session.typ.method != m {
		b.misuse(opt + " is only valid for the " + m.String() + " method")
		return false
	}
	return true
}

// WithTimeout enables the timeout extension with the given default entry
// lifetime in seconds. Valid for every set type.
func (b *CreateBuilder) WithTimeout(seconds uint32) *CreateBuilder {
	return b.set(OptTimeout, seconds)
}

// WithCounters enables per-entry packet and byte counters. Valid for
// every set type.
func (b *CreateBuilder) WithCounters() *CreateBuilder {
	return b.set(OptCounters, true)
}

// WithSkbInfo enables the skbinfo extension (firewall mark, tc class and
// hardware queue per entry). Valid for every set type.
func (b *CreateBuilder) WithSkbInfo() *CreateBuilder {
	return b.set(OptSkbInfo, true)
}

// WithComment enables the comment extension. Valid for every set type.
func (b *CreateBuilder) WithComment() *CreateBuilder {
	return b.set(OptComment, true)
}

// WithHashSize sets the initial hash size. Hash method only.
func (b *CreateBuilder) WithHashSize(size uint32) *CreateBuilder {
	if !b.requireMethod(MethodHash, "hashsize") {
		return b
	}
	return b.set(OptHashSize, size)
}

// WithMaxElem sets the maximal number of elements. Hash method only.
func (b *CreateBuilder) WithMaxElem(max uint32) *CreateBuilder {
	if !b.requireMethod(MethodHash, "maxelem") {
		return b
	}
	return b.set(OptMaxElem, max)
}

// WithForceAdd lets additions to a full set evict a random entry. Hash
// method only.
func (b *CreateBuilder) WithForceAdd() *CreateBuilder {
	if !b.requireMethod(MethodHash, "forceadd") {
		return b
	}
	return b.set(OptForceAdd, true)
}

// WithFamily sets the address family of the stored data. Hash method
// only, and not applicable to mac-only compositions.
func (b *CreateBuilder) WithFamily(f Family) *CreateBuilder {
	if !b.requireMethod(MethodHash, "family") {
		return b
	}
	if b.session.typ.dataName() == "mac" {
		return b.misuse("family is not supported for hash:mac")
	}
	return b.set(OptFamily, f)
}

// WithNetmask stores network addresses instead of host addresses,
// masking each added address with the given prefix. Only for ip-typed
// bitmap and hash sets; the prefix must be in [1, 32].
func (b *CreateBuilder) WithNetmask(cidr uint8) *CreateBuilder {
	if b.err != nil {
		return b
	}
	if b.session.typ.method == MethodList || b.session.typ.dataName() != "ip" {
		return b.misuse("netmask is only valid for ip-typed bitmap and hash sets")
	}
	if cidr < 1 || cidr > 32 {
		return b.misuse("netmask prefix must be in range [1, 32]")
	}
	return b.set(OptNetmask, cidr)
}

// WithNomatch allows entries marked nomatch in this set. Only valid for
// compositions carrying a net component.
func (b *CreateBuilder) WithNomatch() *CreateBuilder {
	if b.err != nil {
		return b
	}
	if !strings.Contains(b.session.typ.dataName(), "net") {
		return b.misuse("nomatch is only valid for net data types")
	}
	return b.set(OptNomatch, true)
}

// WithWildcard enables prefix matching of interface names. Only valid
// for hash:net,iface.
func (b *CreateBuilder) WithWildcard() *CreateBuilder {
	if b.err != nil {
		return b
	}
	if b.session.typ.method != MethodHash || b.session.typ.dataName() != "net,iface" {
		return b.misuse("wildcard is only valid for hash:net,iface")
	}
	return b.set(OptIfaceWildcard, true)
}

// WithSize sets the initial size of a list:set.
func (b *CreateBuilder) WithSize(size uint32) *CreateBuilder {
	if !b.requireMethod(MethodList, "size") {
		return b
	}
	return b.set(OptSize, size)
}

// WithRange bounds a bitmap set. Bitmap method only; from and to must
// match the set's data type. Range-bounded creation is required for
// bitmap sets, a plain create is rejected by the native library.
func (b *CreateBuilder) WithRange(from, to DataType) *CreateBuilder {
	if !b.requireMethod(MethodBitmap, "range") {
		return b
	}
	if from.typeName() != b.session.typ.dataName() || to.typeName() != b.session.typ.dataName() {
		return b.misuse("range bounds do not match set type " + b.session.typ.Name())
	}
	if err := from.encode(b.session.h, roleFrom); err != nil {
		b.err = err
		return b
	}
	if err := to.encode(b.session.h, roleTo); err != nil {
		b.err = err
	}
	return b
}
