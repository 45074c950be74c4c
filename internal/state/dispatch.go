package state

import (
	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/rpc"
)

// Dispatch applies an rpc method value to st, returning whichever
// Apply* method owns that operation. It is the one place that knows
// the mapping between the inert method values in the rpc package and
// the behavior that lives on State, so admin handlers can hand
// Dispatch a freshly built rpc method value instead of writing their
// own closure over an Apply* call (§4.5).
func Dispatch(st *State, method any) (any, error) {
	switch m := method.(type) {
	case rpc.GetConfig:
		return st.ApplyGetConfig()
	case rpc.SetConfig:
		return st.ApplySetConfig(m.Config)

	case rpc.GetPortList:
		return st.ApplyGetPortList()
	case rpc.GetPort:
		return st.ApplyGetPort(m.ID)
	case rpc.GetPortStatus:
		return st.ApplyGetPortStatus(m.ID)
	case rpc.AddPort:
		return st.ApplyAddPort(m.Entry)
	case rpc.UpdatePort:
		return st.ApplyUpdatePort(m.ID, m.Entry)
	case rpc.DeletePort:
		return st.ApplyDeletePort(m.ID)

	case rpc.GetSiteList:
		return st.ApplyGetSiteList()
	case rpc.AddSite:
		return st.ApplyAddSite(m.Entry)
	case rpc.UpdateSite:
		return st.ApplyUpdateSite(m.ID, m.Entry)
	case rpc.DeleteSite:
		return st.ApplyDeleteSite(m.ID)

	case rpc.GetServerCertList:
		return st.ApplyGetServerCertList()
	case rpc.AddServerCert:
		return st.ApplyAddServerCert(m.ChainPEM, m.KeyPEM, m.Source)
	case rpc.DeleteServerCert:
		return st.ApplyDeleteServerCert(m.ID)

	case rpc.GetAcmeList:
		return st.ApplyGetAcmeList()
	case rpc.AddAcme:
		return st.ApplyAddAcme(m.Entry)
	case rpc.DeleteAcme:
		return st.ApplyDeleteAcme(m.ID)

	case rpc.Login:
		return st.ApplyLogin(m.Username, m.Password)
	case rpc.AddAccount:
		return st.ApplyAddAccount(m.Username, m.Password)

	default:
		return nil, apierr.Newf(apierr.Internal, "unhandled rpc method %T", method)
	}
}
