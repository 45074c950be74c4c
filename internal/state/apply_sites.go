package state

import (
	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

// ApplyGetSiteList returns every declared site.
func (s *State) ApplyGetSiteList() ([]sitemap.SiteEntry, error) {
	return s.sites.List(), nil
}

// ApplyAddSite validates and assigns a fresh id to entry, persisting
// before publishing SitesUpdated. Ports are not reconciled directly by
// a site change; a bound port's hash changes because its resolved
// site is embedded in hashPort, so Plan naturally issues a Reload.
func (s *State) ApplyAddSite(entry sitemap.SiteEntry) (sitemap.SiteEntry, error) {
	if err := entry.Validate(); err != nil {
		return sitemap.SiteEntry{}, err
	}
	id, err := s.ids.Generate(ident.KindSite)
	if err != nil {
		return sitemap.SiteEntry{}, apierr.Wrap(apierr.Internal, err)
	}
	entry.ID = id

	if err := s.sites.Add(entry); err != nil {
		return sitemap.SiteEntry{}, err
	}
	if err := s.store.SaveSites(s.sites.List()); err != nil {
		s.sites.Delete(id)
		s.ids.Release(ident.KindSite, id)
		return sitemap.SiteEntry{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.SitesUpdated{Items: s.sites.List()})
	s.scheduleReconcile()
	return entry, nil
}

// ApplyUpdateSite replaces an existing site's declaration.
func (s *State) ApplyUpdateSite(id ident.ID, entry sitemap.SiteEntry) (sitemap.SiteEntry, error) {
	if err := entry.Validate(); err != nil {
		return sitemap.SiteEntry{}, err
	}
	previous, existed := s.sites.Get(id)
	if err := s.sites.Update(id, entry); err != nil {
		return sitemap.SiteEntry{}, err
	}
	if err := s.store.SaveSites(s.sites.List()); err != nil {
		if existed {
			_ = s.sites.Update(id, previous)
		}
		return sitemap.SiteEntry{}, apierr.Wrap(apierr.IoError, err)
	}

	entry.ID = id
	s.bus.Publish(event.SitesUpdated{Items: s.sites.List()})
	s.scheduleReconcile()
	return entry, nil
}

// ApplyDeleteSite removes a site. Ports still pointing at it are left
// with a dangling SiteID; the reconciler plans them against an empty
// SiteEntry and does not flag them.
func (s *State) ApplyDeleteSite(id ident.ID) (struct{}, error) {
	previous, existed := s.sites.Get(id)
	if !existed {
		return struct{}{}, apierr.NotFoundf("site %s not found", id)
	}
	s.sites.Delete(id)
	if err := s.store.SaveSites(s.sites.List()); err != nil {
		_ = s.sites.Add(previous)
		return struct{}{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.SitesUpdated{Items: s.sites.List()})
	s.scheduleReconcile()
	return struct{}{}, nil
}
