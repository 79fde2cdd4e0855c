package workspace

import "sync"

// idBridge maps between client-local record ids and server-assigned file
// ids. The two directions are always updated together; a record with a
// write still in flight simply has no entry.
type idBridge struct {
	mu             sync.Mutex
	serverToClient map[string]string
	clientToServer map[string]string
}

func newIDBridge() *idBridge {
	return &idBridge{
		serverToClient: map[string]string{},
		clientToServer: map[string]string{},
	}
}

func (b *idBridge) record(serverID, clientID string) {
	if serverID == "" || clientID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serverToClient[serverID] = clientID
	b.clientToServer[clientID] = serverID
}

func (b *idBridge) serverID(clientID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.clientToServer[clientID]
	return id, ok
}

func (b *idBridge) clientID(serverID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.serverToClient[serverID]
	return id, ok
}

// forget removes both directions for the record identified by clientID.
func (b *idBridge) forget(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	serverID, ok := b.clientToServer[clientID]
	if !ok {
		return
	}
	delete(b.clientToServer, clientID)
	delete(b.serverToClient, serverID)
}

func (b *idBridge) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serverToClient = map[string]string{}
	b.clientToServer = map[string]string{}
}

func (b *idBridge) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clientToServer)
}
