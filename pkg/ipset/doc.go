// Package ipset is a typed client for the netfilter set-management
// facility. It drives named sets of network attributes (addresses,
// networks, MAC addresses, ports, interface names, firewall marks and
// compositions thereof) through the full command lifecycle: create,
// add/del/test, list, flush/destroy and save/restore.
//
// The package talks to the native library only through the narrow Lib
// and Handle interfaces in native.go, so callers choose the backend.
// The execlib subpackage provides a default backend that drives the
// ipset(8) binary:
//
//	set := ipset.New(execlib.New(utilexec.New()))
//	defer set.Close()
//
//	session, err := set.NewSession("blocklist", ipset.HashIP)
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	_, err = session.Create(func(b *ipset.CreateBuilder) error {
//		return b.WithFamily(ipset.FamilyIPv4).WithCounters().Err()
//	})
//	if err != nil {
//		return err
//	}
//	ok, err := session.Add(ipset.NewIP(net.ParseIP("192.168.3.1")))
//
// Boolean-returning operations reserve errors for real failures:
// "already added", "not a member" and similar responses from the native
// library come back as a plain false. See Session for the exact rules.
//
// The set-type system is closed: the 15 supported method:type
// combinations are the package-level SetType values (BitmapIP through
// ListSet) and elements are built from the primitive data types IP,
// Net, Mac, Port, Iface, Mark and SetMember, composed with NewPair and
// NewTriple for the multi-attribute types:
//
//	data := ipset.NewTriple(ip, ipset.NewPort(8080), otherIP)
//	ok, err := session.Add(data) // hash:ip,port,ip
package ipset
