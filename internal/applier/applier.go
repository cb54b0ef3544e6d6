package applier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hornwind/ipset/internal/models"
	ipt "github.com/hornwind/ipset/internal/models/firewall/iptables"
	"github.com/hornwind/ipset/pkg/config"
	"github.com/hornwind/ipset/pkg/ipset"
	"github.com/hornwind/ipset/pkg/ipset/execlib"
	_ "github.com/hornwind/ipset/pkg/log"
	log "github.com/sirupsen/logrus"
	utilexec "k8s.io/utils/exec"
)

const (
	reconciliationInterval = 30 * time.Second
	iptTable               = "filter"
	defaultChain           = "managed-sets"
	defaultPolicy          = "DROP"
)

// Applier keeps the kernel sets and the iptables chain in sync with the
// configured set list: configured sets are created and refilled, sets
// that dropped out of the configuration are torn down together with
// their match rules.
type Applier struct {
	mu             sync.RWMutex
	fnCancelRunCTX context.CancelFunc
	config         config.Config
	storage        models.Repository
	fw             models.Firewall
	sets           *ipset.IPSet
	liveSets       map[string]interface{}
}

func NewApplier(localCTX context.CancelFunc, config config.Config, storage models.Repository) (*Applier, error) {
	exec := utilexec.New()
	fw, err := ipt.NewIptables()
	if err != nil {
		return nil, err
	}

	applier := &Applier{
		mu:             sync.RWMutex{},
		fnCancelRunCTX: localCTX,
		config:         config,
		storage:        storage,
		fw:             fw,
		sets:           ipset.New(execlib.New(exec)),
		liveSets:       make(map[string]interface{}, 1),
	}
	return applier, nil
}

func (a *Applier) chain() string {
	if a.config.Chain != "" {
		return a.config.Chain
	}
	return defaultChain
}

func (a *Applier) defaultPolicy() string {
	if a.config.DefaultPolicy != "" {
		return strings.ToUpper(a.config.DefaultPolicy)
	}
	return defaultPolicy
}

func matchSetRule(name, policy string) []string {
	return []string{"-m", "set", "--match-set", name, "src", "-j", strings.ToUpper(policy)}
}

func (a *Applier) Run(ctx context.Context) {
	localCTX, cancel := context.WithCancel(ctx)
	a.fnCancelRunCTX = cancel
	go a.runApplier(localCTX)
	go a.runCleanup(localCTX)
}

// ApplyOnce runs a single reconcile plus cleanup pass.
func (a *Applier) ApplyOnce() error {
	if err := a.refreshLiveSets(); err != nil {
		return err
	}
	if err := a.reconcile(); err != nil {
		return err
	}
	return a.cleanupRemovedSets()
}

func (a *Applier) runApplier(ctx context.Context) {
	ticker := time.NewTicker(a.config.Interval(reconciliationInterval))
	defer ticker.Stop()

	log.Debug("Applier started")

	for {
		select {
		case <-ctx.Done():
			log.Debugf("Applier ctx: %v", ctx.Err())
			return
		case <-ticker.C:
			if err := a.refreshLiveSets(); err != nil {
				log.Warn(err)
			}
			if err := a.reconcile(); err != nil {
				log.Warn(err)
				a.fnCancelRunCTX()
			}
		}
	}
}

func (a *Applier) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(a.config.Interval(reconciliationInterval))
	defer ticker.Stop()

	log.Debug("Cleanup started")

	for {
		select {
		case <-ctx.Done():
			log.Debugf("Cleanup ctx: %v", ctx.Err())
			return
		case <-ticker.C:
			if err := a.refreshLiveSets(); err != nil {
				log.Warn(err)
			}
			if err := a.cleanupRemovedSets(); err != nil {
				log.Warn(err)
				a.fnCancelRunCTX()
			}
		}
	}
}

// knownSetNames merges the configured sets with everything the state db
// still remembers.
func (a *Applier) knownSetNames() ([]string, error) {
	names := make(map[string]interface{}, len(a.config.Sets))
	for _, s := range a.config.Sets {
		names[s.Name] = nil
	}
	stored, err := a.storage.ListSets()
	if err != nil {
		return nil, err
	}
	for _, n := range stored {
		names[n] = nil
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	return out, nil
}

func (a *Applier) refreshLiveSets() error {
	names, err := a.knownSetNames()
	if err != nil {
		log.Error(err)
		return err
	}

	live := make(map[string]interface{}, len(names))
	for _, name := range names {
		typ := a.typeFor(name)
		sess, err := a.sets.NewSession(name, typ)
		if err != nil {
			return err
		}
		exists, err := sess.Exists()
		sess.Close()
		if err != nil {
			return err
		}
		if exists {
			live[name] = nil
		}
	}

	a.mu.Lock()
	a.liveSets = live
	a.mu.Unlock()
	return nil
}

// typeFor resolves the set type for name from config first, then from
// stored state, falling back to hash:net.
func (a *Applier) typeFor(name string) ipset.SetType {
	for _, s := range a.config.Sets {
		if s.Name == name {
			if typ, ok := ipset.TypeByName(s.Type); ok {
				return typ
			}
		}
	}
	if state, err := a.storage.GetSetState(name); err == nil {
		if typ, ok := ipset.TypeByName(state.TypeName); ok {
			return typ
		}
	}
	return ipset.HashNet
}

func (a *Applier) reconcile() error {
	if _, err := a.fw.EnsureChain(iptTable, a.chain(), a.defaultPolicy()); err != nil {
		return err
	}

	pos := 1
	for _, sc := range a.config.Sets {
		if err := a.applySet(sc, pos); err != nil {
			log.Errorf("Apply set %s failed: %v", sc.Name, err)
			return err
		}
		pos++
	}
	return nil
}

func (a *Applier) applySet(sc config.SetConfig, pos int) error {
	typ, ok := ipset.TypeByName(sc.Type)
	if !ok {
		return fmt.Errorf("set %s has unknown type %s", sc.Name, sc.Type)
	}
	sess, err := a.sets.NewSession(sc.Name, typ)
	if err != nil {
		return err
	}
	defer sess.Close()

	a.mu.RLock()
	_, live := a.liveSets[sc.Name]
	a.mu.RUnlock()

	if live {
		// refill in place
		if _, err := sess.Flush(); err != nil {
			return err
		}
	} else {
		if _, err := sess.Create(func(b *ipset.CreateBuilder) error {
			if sc.Timeout > 0 {
				b.WithTimeout(sc.Timeout)
			}
			if sc.Counters {
				b.WithCounters()
			}
			if sc.Comment {
				b.WithComment()
			}
			if typ.Method() == ipset.MethodHash {
				if sc.HashSize > 0 {
					b.WithHashSize(sc.HashSize)
				}
				if sc.MaxElem > 0 {
					b.WithMaxElem(sc.MaxElem)
				}
				if sc.Family == "inet6" {
					b.WithFamily(ipset.FamilyIPv6)
				}
			}
			return b.Err()
		}); err != nil {
			return err
		}
		a.mu.Lock()
		a.liveSets[sc.Name] = nil
		a.mu.Unlock()
	}

	sess.SetEnv(ipset.EnvExist)
	for _, entry := range sc.Entries {
		data, err := typ.ParseData(entry)
		if err != nil {
			return err
		}
		if _, err := sess.Add(data); err != nil {
			return err
		}
	}

	policy := a.defaultPolicy()
	if sc.Policy != "" {
		policy = strings.ToUpper(sc.Policy)
	}
	rule := matchSetRule(sc.Name, policy)
	if _, err := a.fw.EnsureRule(pos, iptTable, a.chain(), rule...); err != nil {
		return err
	}

	state := &models.SetState{
		Name:            sc.Name,
		TypeName:        typ.Name(),
		UpdateTimestamp: time.Now(),
		Entries:         sc.Entries,
		Rule:            rule,
		Applied:         true,
	}
	if err := a.storage.CreateOrUpdate(state); err != nil {
		log.Warnf("Could not store state for %s: %v", sc.Name, err)
		return err
	}
	log.Debugf("Set %s applied with %d entries", sc.Name, len(sc.Entries))
	return nil
}

// cleanupRemovedSets tears down sets that are still in the state db or
// the kernel but no longer configured.
func (a *Applier) cleanupRemovedSets() error {
	configured := make(map[string]interface{}, len(a.config.Sets))
	for _, s := range a.config.Sets {
		configured[s.Name] = nil
	}

	stored, err := a.storage.ListSets()
	if err != nil {
		return err
	}

	for _, name := range stored {
		if _, ok := configured[name]; ok {
			continue
		}

		if rule, err := a.storage.GetRule(name); err == nil && len(rule) > 0 {
			log.Debugf("Delete rule %v", rule)
			if err := a.fw.DeleteRule(iptTable, a.chain(), rule...); err != nil {
				return err
			}
		}

		a.mu.RLock()
		_, live := a.liveSets[name]
		a.mu.RUnlock()
		if live {
			sess, err := a.sets.NewSession(name, a.typeFor(name))
			if err != nil {
				return err
			}
			log.Debugf("Flush set %s", name)
			if _, err := sess.Flush(); err != nil {
				sess.Close()
				return err
			}
			log.Debugf("Destroy set %s", name)
			if _, err := sess.Destroy(); err != nil {
				sess.Close()
				return err
			}
			sess.Close()
			a.mu.Lock()
			delete(a.liveSets, name)
			a.mu.Unlock()
		}

		log.Debugf("Delete bucket %s", name)
		if err := a.storage.DeleteSet(name); err != nil {
			return err
		}
	}
	return nil
}
