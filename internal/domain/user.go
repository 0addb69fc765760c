package domain

// User es la referencia mínima a un usuario de la plataforma. La identidad
// completa vive en el servicio externo de usuarios; aquí solo se guarda lo
// necesario para mostrar un participante.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}
