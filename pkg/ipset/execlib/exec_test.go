package execlib

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hornwind/ipset/pkg/ipset"
	"k8s.io/utils/exec"
	fakeexec "k8s.io/utils/exec/testing"
)

func scriptedLib(t *testing.T, outputs ...fakeexec.FakeAction) (*Lib, *fakeexec.FakeCmd) {
	t.Helper()
	fcmd := &fakeexec.FakeCmd{CombinedOutputScript: outputs}
	fex := &fakeexec.FakeExec{}
	for range outputs {
		fex.CommandScript = append(fex.CommandScript,
			func(cmd string, args ...string) exec.Cmd {
				return fakeexec.InitFakeCmd(fcmd, cmd, args...)
			})
	}
	return New(fex), fcmd
}

func ok() fakeexec.FakeAction {
	return func() ([]byte, []byte, error) { return nil, nil, nil }
}

func fail(msg string) fakeexec.FakeAction {
	return func() ([]byte, []byte, error) {
		return []byte(msg + "\n"), nil, errors.New("exit status 1")
	}
}

func mustHandle(t *testing.T, l *Lib) ipset.Handle {
	t.Helper()
	h, err := l.NewHandle()
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestAddArgv(t *testing.T) {
	lib, fcmd := scriptedLib(t, ok())
	h := mustHandle(t, lib)

	h.DataSet(ipset.OptSetName, "allow")
	h.DataSet(ipset.OptFamily, ipset.FamilyIPv4)
	h.DataSet(ipset.OptIP, net.ParseIP("10.0.0.0").To4())
	h.DataSet(ipset.OptCIDR, uint8(24))
	if !h.Run(ipset.CmdAdd) {
		msg, _ := h.Report()
		t.Fatalf("Run failed: %s", msg)
	}

	want := []string{"ipset", "add", "allow", "10.0.0.0/24"}
	if !reflect.DeepEqual(fcmd.CombinedOutputLog[0], want) {
		t.Errorf("argv = %v, want %v", fcmd.CombinedOutputLog[0], want)
	}
}

func TestCompositeElementArgv(t *testing.T) {
	lib, fcmd := scriptedLib(t, ok())
	h := mustHandle(t, lib)

	h.DataSet(ipset.OptSetName, "svc")
	h.DataSet(ipset.OptIP, net.ParseIP("10.0.0.1").To4())
	h.DataSet(ipset.OptPort, uint16(80))
	if !h.Run(ipset.CmdTest) {
		t.Fatal("Run failed")
	}

	want := []string{"ipset", "test", "svc", "10.0.0.1,80"}
	if !reflect.DeepEqual(fcmd.CombinedOutputLog[0], want) {
		t.Errorf("argv = %v, want %v", fcmd.CombinedOutputLog[0], want)
	}
}

func TestCreateArgv(t *testing.T) {
	lib, fcmd := scriptedLib(t, ok())
	h := mustHandle(t, lib)

	h.DataSet(ipset.OptSetName, "allow")
	h.DataSet(ipset.OptTypeName, "hash:ip")
	h.DataSet(ipset.OptFamily, ipset.FamilyIPv6)
	h.DataSet(ipset.OptTimeout, uint32(30))
	h.DataSet(ipset.OptHashSize, uint32(64))
	if !h.TypeGet(ipset.CmdCreate) {
		t.Fatal("TypeGet failed")
	}
	if !h.Run(ipset.CmdCreate) {
		t.Fatal("Run failed")
	}

	want := []string{"ipset", "create", "allow", "hash:ip", "family", "inet6", "timeout", "30", "hashsize", "64"}
	if !reflect.DeepEqual(fcmd.CombinedOutputLog[0], want) {
		t.Errorf("argv = %v, want %v", fcmd.CombinedOutputLog[0], want)
	}
}

func TestCreateRangeArgv(t *testing.T) {
	lib, fcmd := scriptedLib(t, ok())
	h := mustHandle(t, lib)

	h.DataSet(ipset.OptSetName, "ports")
	h.DataSet(ipset.OptTypeName, "bitmap:port")
	h.DataSet(ipset.OptPortFrom, uint16(1000))
	h.DataSet(ipset.OptPortTo, uint16(2000))
	if !h.Run(ipset.CmdCreate) {
		t.Fatal("Run failed")
	}

	want := []string{"ipset", "create", "ports", "bitmap:port", "range", "1000-2000"}
	if !reflect.DeepEqual(fcmd.CombinedOutputLog[0], want) {
		t.Errorf("argv = %v, want %v", fcmd.CombinedOutputLog[0], want)
	}
}

func TestTypeGetRequiresTypeName(t *testing.T) {
	lib, _ := scriptedLib(t)
	h := mustHandle(t, lib)

	if h.TypeGet(ipset.CmdCreate) {
		t.Fatal("TypeGet accepted a create without type name")
	}
	msg, fatal := h.Report()
	if msg == "" || !fatal {
		t.Errorf("report = %q fatal = %v", msg, fatal)
	}
}

func TestTestMissReportedNonFatal(t *testing.T) {
	lib, _ := scriptedLib(t, fail("10.0.0.1 is NOT in set allow."))
	h := mustHandle(t, lib)

	h.DataSet(ipset.OptSetName, "allow")
	h.DataSet(ipset.OptIP, net.ParseIP("10.0.0.1").To4())
	if h.Run(ipset.CmdTest) {
		t.Fatal("Run succeeded, want failure")
	}
	msg, fatal := h.Report()
	if !strings.Contains(msg, "is NOT in set") {
		t.Errorf("report = %q", msg)
	}
	if fatal {
		t.Error("test miss classified as fatal")
	}
}

func TestExistEnvDowngradesAndAppendsFlag(t *testing.T) {
	lib, fcmd := scriptedLib(t, fail("Element cannot be added to the set: it's already added"))
	h := mustHandle(t, lib)

	h.EnvSet(ipset.EnvExist)
	h.DataSet(ipset.OptSetName, "allow")
	h.DataSet(ipset.OptIP, net.ParseIP("10.0.0.1").To4())
	if h.Run(ipset.CmdAdd) {
		t.Fatal("Run succeeded, want failure")
	}

	argv := fcmd.CombinedOutputLog[0]
	if argv[len(argv)-1] != "-exist" {
		t.Errorf("argv = %v, want trailing -exist", argv)
	}
	_, fatal := h.Report()
	if fatal {
		t.Error("duplicate add classified as fatal under exist env")
	}
}

func TestMissingSetListNonFatal(t *testing.T) {
	lib, _ := scriptedLib(t, fail("ipset v7.15: The set with the given name does not exist"))
	h := mustHandle(t, lib)

	h.DataSet(ipset.OptSetName, "ghost")
	if h.Run(ipset.CmdList) {
		t.Fatal("Run succeeded, want failure")
	}
	_, fatal := h.Report()
	if fatal {
		t.Error("missing set list classified as fatal")
	}
}

func TestPendingSlotsClearedBetweenRuns(t *testing.T) {
	lib, fcmd := scriptedLib(t, ok(), ok())
	h := mustHandle(t, lib)

	h.DataSet(ipset.OptSetName, "allow")
	h.DataSet(ipset.OptIP, net.ParseIP("10.0.0.1").To4())
	h.Run(ipset.CmdAdd)

	h.DataSet(ipset.OptIP, net.ParseIP("10.0.0.2").To4())
	h.Run(ipset.CmdAdd)

	want := []string{"ipset", "add", "allow", "10.0.0.2"}
	if !reflect.DeepEqual(fcmd.CombinedOutputLog[1], want) {
		t.Errorf("argv = %v, want %v", fcmd.CombinedOutputLog[1], want)
	}
}

func TestListOutputDelivered(t *testing.T) {
	lib, _ := scriptedLib(t, func() ([]byte, []byte, error) {
		return []byte("allow\ndeny\n"), nil, nil
	})
	h := mustHandle(t, lib)

	var captured string
	lib.SetOutput(func(s string) { captured += s })
	defer lib.ClearOutput()

	h.EnvSet(ipset.EnvListSetName)
	if !h.Run(ipset.CmdList) {
		t.Fatal("Run failed")
	}
	if captured != "allow\ndeny\n" {
		t.Errorf("captured = %q", captured)
	}
}

func TestSaveWritesStream(t *testing.T) {
	content := "create allow hash:ip family inet\nadd allow 10.0.0.1\n"
	lib, fcmd := scriptedLib(t, func() ([]byte, []byte, error) {
		return []byte(content), nil, nil
	})
	h := mustHandle(t, lib)

	path := filepath.Join(t.TempDir(), "allow.save")
	if !h.OutputMode(ipset.OutputSave) {
		t.Fatal("OutputMode failed")
	}
	if !h.OpenStream(path, ipset.IOOutput) {
		t.Fatal("OpenStream failed")
	}
	h.DataSet(ipset.OptSetName, "allow")
	if !h.Run(ipset.CmdSave) {
		t.Fatal("Run failed")
	}
	h.CloseStream(ipset.IOOutput)

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Errorf("file content = %q", got)
	}
	want := []string{"ipset", "save", "allow"}
	if !reflect.DeepEqual(fcmd.CombinedOutputLog[0], want) {
		t.Errorf("argv = %v, want %v", fcmd.CombinedOutputLog[0], want)
	}
}

func TestRestoreFeedsStream(t *testing.T) {
	lib, fcmd := scriptedLib(t, ok())
	h := mustHandle(t, lib)

	path := filepath.Join(t.TempDir(), "allow.save")
	if err := os.WriteFile(path, []byte("create allow hash:ip\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if !h.OpenStream(path, ipset.IOInput) {
		t.Fatal("OpenStream failed")
	}
	defer h.CloseStream(ipset.IOInput)

	if err := lib.ParseStream(h); err != nil {
		t.Fatalf("ParseStream: %v", err)
	}
	want := []string{"ipset", "restore"}
	if !reflect.DeepEqual(fcmd.CombinedOutputLog[0], want) {
		t.Errorf("argv = %v, want %v", fcmd.CombinedOutputLog[0], want)
	}
}

func TestRestoreWithoutStream(t *testing.T) {
	lib, _ := scriptedLib(t)
	h := mustHandle(t, lib)

	if err := lib.ParseStream(h); err == nil {
		t.Fatal("ParseStream accepted a handle with no input stream")
	}
}

func TestOpenStreamMissingFile(t *testing.T) {
	lib, _ := scriptedLib(t)
	h := mustHandle(t, lib)

	if h.OpenStream(filepath.Join(t.TempDir(), "missing"), ipset.IOInput) {
		t.Fatal("OpenStream succeeded on a missing file")
	}
	msg, fatal := h.Report()
	if msg == "" || !fatal {
		t.Errorf("report = %q fatal = %v", msg, fatal)
	}
}
