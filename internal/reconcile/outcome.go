package reconcile

import (
	"errors"

	"auditoria-backend/internal/models"
)

// Action: resultado de una invocación del motor, tal y como se devuelve al
// llamador en el JSON de respuesta.
type Action string

const (
	ActionClosed                Action = "closed"
	ActionNextRound             Action = "next_round"
	ActionEscalateToSuperadmin  Action = "escalate_to_superadmin"
	ActionForcedCloseSuperadmin Action = "forced_close_superadmin"
	ActionWaitingForCounts      Action = "waiting_for_counts"
	ActionError                 Action = "error"
)

type Outcome struct {
	Success  bool               `json:"success"`
	Action   Action             `json:"action"`
	Reason   models.CloseReason `json:"reason,omitempty"`
	NewRound int                `json:"new_round,omitempty"`
	Error    string             `json:"error,omitempty"`
}

var (
	// ErrNotFound: el código de referencia no existe. Fatal, sin reintento.
	ErrNotFound = errors.New("referencia no encontrada")

	// ErrBusy: otra reconciliación tiene el lock de la referencia. El llamador
	// puede reintentar tras una pausa o confiar en el siguiente disparo natural.
	ErrBusy = errors.New("reconciliación en curso para esta referencia")

	// ErrPersistence: fallo de escritura; la transacción se revirtió completa,
	// por lo que reejecutar la reconciliación es seguro.
	ErrPersistence = errors.New("error de persistencia")

	// ErrValidation: entrada manual rechazada antes de escribir nada.
	ErrValidation = errors.New("validación")
)

func errorOutcome(err error) Outcome {
	return Outcome{Success: false, Action: ActionError, Error: err.Error()}
}
