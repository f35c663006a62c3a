package bpmgr

// Backend is the surface spec.md §6 exposes to the ProtocolLayer, common
// to every concrete manager. Hit attribution differs by manager (see
// AddressHitter / ThreadHitter below) and so is deliberately excluded
// from this interface.
type Backend interface {
	Add(address Address, typ Type, size Size, mode Mode) error
	Remove(address Address) error
	Has(address Address) bool
	Enumerate(cb func(Site))
	Enable()
	Disable()
	Clear()
	MaxWatchpoints() int
}

// AddressHitter is implemented by managers whose hit attribution is
// purely address-based (the abstract base form, §4.2).
type AddressHitter interface {
	Hit(address Address, outSite *Site) bool
}

// ThreadHitter is implemented by managers that must inspect live thread
// state (instruction pointer or debug status register) to attribute a
// hit: the software manager and both hardware managers.
type ThreadHitter interface {
	Hit(thread TracedThread, outSite *Site) int
}

// backend is implemented by the concrete breakpoint managers
// (software, hardware-x86, hardware-arm) and supplies the
// architecture-specific validation and the actual install/remove of a
// Site against the target.
type backend interface {
	isValid(address Address, size Size, mode Mode) error
	enableLocation(site Site) error
	disableLocation(site Site) error
}

// Manager is the abstract breakpoint/watchpoint manager. It owns a
// SiteRegistry and enforces the refcount/type discipline described in
// spec.md §4.2; the actual work of poking memory or debug registers is
// delegated to a backend.
type Manager struct {
	enabled bool
	process TracedProcess
	sites   *siteRegistry
	backend backend
}

func newManager(process TracedProcess, backend backend) Manager {
	return Manager{
		process: process,
		sites:   newSiteRegistry(),
		backend: backend,
	}
}

// Add installs a breakpoint/watchpoint at address, merging with any
// existing Site there. See spec.md §4.2 for the full merge/refcount
// algorithm.
func (m *Manager) Add(address Address, typ Type, size Size, mode Mode) error {
	if err := m.backend.isValid(address, size, mode); err != nil {
		return err
	}

	if site, ok := m.sites.get(address); ok {
		if site.Mode != mode {
			return errf(InvalidArgument, "address %s already has mode %s, requested %s", address, site.Mode, mode)
		}
		site.Type |= typ
		if typ == Permanent {
			site.Refs++
		}
		return nil
	}

	site := &Site{
		Address: address,
		Type:    typ,
		Mode:    mode,
		Size:    size,
	}
	if typ == Permanent {
		site.Refs = 1
	}
	m.sites.put(site)

	if m.enabled {
		return m.backend.enableLocation(*site)
	}
	return nil
}

// Remove uninstalls (or decrements the refcount of) the site at address.
// See spec.md §4.2.
func (m *Manager) Remove(address Address) error {
	if !address.Valid() {
		return errf(InvalidArgument, "invalid address")
	}

	site, ok := m.sites.get(address)
	if !ok {
		return errf(NotFound, "no site at %s", address)
	}

	if site.Type.Has(Permanent) {
		invariant(site.Refs > 0, "refcount underflow at %s", address)
		site.Refs--
		if site.Refs > 0 {
			return nil
		}
		if site.Type != Permanent {
			// Other type bits remain set; just drop the Permanent tag.
			site.Type &^= Permanent
			return nil
		}
		// refs == 0 and type is exactly Permanent: fall through to removal.
	}

	invariant(site.Refs == 0, "non-zero refcount on removal at %s", address)

	var disableErr error
	if m.enabled {
		disableErr = m.backend.disableLocation(*site)
	}
	m.sites.delete(address)
	return disableErr
}

// Has reports whether a Site is registered at address.
func (m *Manager) Has(address Address) bool {
	if !address.Valid() {
		return false
	}
	_, ok := m.sites.get(address)
	return ok
}

// Enumerate invokes cb with a read-only copy of every registered Site.
func (m *Manager) Enumerate(cb func(Site)) {
	m.sites.enumerate(cb)
}

// Enable marks the manager enabled and pushes every registered site's
// state into the target. Double-enabling logs a warning and is
// otherwise a no-op repeat of the sweep.
func (m *Manager) Enable() {
	if m.enabled {
		log.Warnln("double-enabling breakpoints")
	}
	m.enabled = true

	m.sites.enumerate(func(site Site) {
		if err := m.backend.enableLocation(site); err != nil {
			log.Warnf("failed to enable site at %s: %v", site.Address, err)
		}
	})
}

// Disable marks the manager disabled, pulls every registered site's
// state out of the target, then sweeps one-shot and until-hit sites that
// have become empty. Disabling a manager that is not enabled logs a
// warning and does nothing else.
func (m *Manager) Disable() {
	if !m.enabled {
		log.Warnln("double-disabling breakpoints")
		return
	}
	m.enabled = false

	m.sites.enumerate(func(site Site) {
		if err := m.backend.disableLocation(site); err != nil {
			log.Warnf("failed to disable site at %s: %v", site.Address, err)
		}
	})

	var toDelete []Address
	for addr, site := range m.sites.sites {
		site.Type &^= TemporaryOneShot
		if site.Type == 0 {
			invariant(site.Refs == 0, "non-zero refcount on swept site at %s", addr)
			toDelete = append(toDelete, addr)
		}
	}
	for _, addr := range toDelete {
		m.sites.delete(addr)
	}
}

// Clear erases the registry without touching target memory or debug
// registers. It is for use only when the process is being torn down;
// callers must invoke it explicitly (there is no finalizer).
func (m *Manager) Clear() {
	m.sites = newSiteRegistry()
}

// Hit looks up a Site by address (the default, address-based form, for
// callers that already know the effective address and don't need
// thread-based effective-PC resolution; the software and hardware
// managers attribute hits through their own thread-based Hit). If found, it clears the TemporaryUntilHit
// bit (so a subsequent Disable sweeps it away) and copies the Site into
// outSite.
func (m *Manager) Hit(address Address, outSite *Site) bool {
	if !address.Valid() {
		return false
	}
	site, ok := m.sites.get(address)
	if !ok {
		return false
	}
	site.Type &^= TemporaryUntilHit
	*outSite = *site
	return true
}

// MaxWatchpoints returns 0 for managers with no hardware-slot ceiling
// (the software manager). Hardware managers override this.
func (m *Manager) MaxWatchpoints() int {
	return 0
}

// isValid is the base address-only validation all backends extend.
func (m *Manager) isValid(address Address, size Size, mode Mode) error {
	if !address.Valid() {
		return errf(InvalidArgument, "invalid address")
	}
	return nil
}
