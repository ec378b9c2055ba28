package lobby

import (
	"github.com/palemoky/impostor-party/internal/server/storage"
)

// ToLobbyData 将大厅转换为可序列化的快照
func (l *GameLobby) ToLobbyData() *storage.LobbyData {
	players := l.GetPlayers()

	data := &storage.LobbyData{
		Code:       l.Code,
		HostID:     l.HostID(),
		Lifecycle:  l.Lifecycle().String(),
		Players:    make([]storage.PlayerData, 0, len(players)),
		Settings:   l.settings.Snapshot(),
		EventCount: l.EventCount(),
		CreatedAt:  l.CreatedAt.Unix(),
	}

	for _, p := range players {
		pd := storage.PlayerData{
			ID:             p.ID,
			Name:           p.Name,
			Alive:          p.IsAlive(),
			TasksCompleted: p.CompletedTaskCount(),
			TasksTotal:     p.TotalTaskCount(),
		}
		if r, ok := p.Role(); ok {
			pd.Role = r.String()
		}
		data.Players = append(data.Players, pd)
	}

	return data
}
