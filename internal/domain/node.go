package domain

type NodeKind int

const (
	NodeDepot NodeKind = iota
	NodeCustomer
	NodeDepotReturn
)

func (k NodeKind) String() string {
	switch k {
	case NodeDepot:
		return "depot"
	case NodeCustomer:
		return "customer"
	case NodeDepotReturn:
		return "depot-return"
	default:
		return "unknown"
	}
}

// Represents a location the fleet can visit.
// The depot is duplicated as a terminal node (NodeDepotReturn) that shares its
// geography but has its own identifier. Nodes are immutable after load.
type Node struct {
	ID               int
	Kind             NodeKind
	Position         Coordinates
	ParcelWeightLbs  float64
	TruckServiceTime float64
	DroneServiceTime float64
	Address          string
}

func (n Node) IsCustomer() bool { return n.Kind == NodeCustomer }
