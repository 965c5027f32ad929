package plan

// GroupKey is the destination grouping a truck never crosses: optional zone
// and route, then customer, state, city. Customer is always part of the key,
// which is what keeps no-multi-stop customers isolated structurally.
// Missing optional fields are empty strings and compare equal only to other
// missing values, so the struct works directly as a map key.
type GroupKey struct {
	Zone     string
	Route    string
	Customer string
	State    string
	City     string
}

// KeyFor builds the group key for an order line.
func KeyFor(l *OrderLine) GroupKey {
	return GroupKey{
		Zone:     l.Zone,
		Route:    l.Route,
		Customer: l.Customer,
		State:    l.State,
		City:     l.City,
	}
}

// Less orders group keys lexically field by field. Used for the stable group
// iteration that truck numbering depends on.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Zone != o.Zone {
		return k.Zone < o.Zone
	}
	if k.Route != o.Route {
		return k.Route < o.Route
	}
	if k.Customer != o.Customer {
		return k.Customer < o.Customer
	}
	if k.State != o.State {
		return k.State < o.State
	}
	return k.City < o.City
}

func (k GroupKey) String() string {
	return k.Zone + "|" + k.Route + "|" + k.Customer + "|" + k.State + "|" + k.City
}
