package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/domain/directory"
	"github.com/galleycloud/ticket-chat-api/internal/domain/presence"
	"github.com/galleycloud/ticket-chat-api/internal/domain/room"
	"github.com/galleycloud/ticket-chat-api/internal/domain/ticket"
)

// PresenceSnapshotter supplies a point-in-time view of reachable users.
// The view may be stale by the time it is acted on, callers push to the
// returned connection ids best-effort.
type PresenceSnapshotter interface {
	SnapshotOnline(ctx context.Context) (map[uuid.UUID]string, error)
}

// Recipient is one resolved delivery target
type Recipient struct {
	UserID       uuid.UUID
	ConnectionID string
	Reachable    bool
	Email        string
	DisplayName  string
}

// ClassResolution is the outcome of assignment-first role-fallback
// resolution for one staff class.
type ClassResolution struct {
	// Assigned is the ticket's explicitly assigned staff member, nil
	// when the ticket carries no assignment for this class.
	Assigned *Recipient

	// Eligible is the role-based recipient set, reachable or not.
	Eligible []Recipient
}

// Fanout returns the live connections for this class. An assigned,
// reachable staff member gets exclusive delivery. Otherwise every
// reachable role-eligible staff member is included.
func (c *ClassResolution) Fanout() []Recipient {
	if c.Assigned != nil && c.Assigned.Reachable {
		return []Recipient{*c.Assigned}
	}
	out := []Recipient{}
	for _, r := range c.Eligible {
		if r.Reachable {
			out = append(out, r)
		}
	}
	return out
}

// ObligationTargets returns who should be reminded about an unread
// message on this class: the assignee when the ticket is assigned,
// otherwise the full role-eligible set.
func (c *ClassResolution) ObligationTargets() []Recipient {
	if c.Assigned != nil {
		return []Recipient{*c.Assigned}
	}
	return c.Eligible
}

// Resolution is the full recipient set for one room at one instant
type Resolution struct {
	Customers []Recipient
	Merchant  ClassResolution
	Admin     ClassResolution
}

// Fanout returns every live connection that should receive a message
// right now, across all classes.
func (r *Resolution) Fanout() []Recipient {
	out := []Recipient{}
	for _, c := range r.Customers {
		if c.Reachable {
			out = append(out, c)
		}
	}
	out = append(out, r.Merchant.Fanout()...)
	out = append(out, r.Admin.Fanout()...)
	return out
}

// Resolver determines who should receive a room's messages
type Resolver struct {
	rooms     room.Repository
	tickets   ticket.Repository
	directory directory.Repository
	presence  PresenceSnapshotter
}

// NewResolver creates participant resolver
func NewResolver(rooms room.Repository, tickets ticket.Repository, dir directory.Repository, pres PresenceSnapshotter) *Resolver {
	return &Resolver{
		rooms:     rooms,
		tickets:   tickets,
		directory: dir,
		presence:  pres,
	}
}

// Resolve computes the recipient set for a room. One presence snapshot
// is taken per resolution and shared across all participants. A room
// with zero resolvable recipients returns empty collections, not an
// error. A presence failure degrades to "nobody reachable" so the send
// path can still persist and schedule notifications.
func (rv *Resolver) Resolve(ctx context.Context, roomID uuid.UUID) (*Resolution, error) {
	rm, err := rv.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, room.ErrRoomNotFound
	}

	snapshot, err := rv.presence.SnapshotOnline(ctx)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Presence snapshot failed, assuming nobody reachable")
		snapshot = map[uuid.UUID]string{}
	}

	res := &Resolution{Customers: []Recipient{}}

	var merchantDone bool
	for _, p := range rm.Participants {
		switch p.Type {
		case room.ParticipantCustomer:
			res.Customers = append(res.Customers, rv.resolveCustomer(ctx, p.OrganisationID, snapshot))

		case room.ParticipantMerchant:
			// A merchant participant without an outlet is not actionable
			if !p.OutletID.Valid || merchantDone {
				continue
			}
			merchant, ok := rv.resolveMerchantClass(ctx, rm, p.OrganisationID, p.OutletID.UUID, snapshot)
			if !ok {
				continue
			}
			res.Merchant = merchant
			merchantDone = true
		}
	}

	// The admin side is resolved from the ticket, not the participant
	// list
	if admin, ok := rv.resolveAdminClass(ctx, rm, snapshot); ok {
		res.Admin = admin
	}

	return res, nil
}

func (rv *Resolver) resolveCustomer(ctx context.Context, userID uuid.UUID, snapshot map[uuid.UUID]string) Recipient {
	r := Recipient{UserID: userID}
	if connID, ok := snapshot[userID]; ok {
		r.ConnectionID = connID
		r.Reachable = true
	}

	customer, err := rv.directory.GetCustomer(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to load customer contact details")
		return r
	}
	if customer != nil {
		r.Email = customer.Email
		r.DisplayName = customer.FullName()
	}
	return r
}

func (rv *Resolver) resolveMerchantClass(ctx context.Context, rm *room.Room, merchantID, outletID uuid.UUID, snapshot map[uuid.UUID]string) (ClassResolution, bool) {
	t, ok := rv.loadTicket(ctx, rm)
	if !ok {
		return ClassResolution{}, false
	}

	res := ClassResolution{Eligible: []Recipient{}}

	if t.AssignedMerchantStaffID.Valid {
		staff, err := rv.directory.GetMerchantStaff(ctx, t.AssignedMerchantStaffID.UUID)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load assigned merchant staff")
		} else if staff != nil {
			assigned := staffRecipient(staff.ID, staff.Email, staff.FullName(), snapshot)
			res.Assigned = &assigned
			if assigned.Reachable {
				return res, true
			}
		}
	}

	roles, err := rv.directory.ListSupportRoles(ctx, merchantID)
	if err != nil {
		log.Warn().Err(err).Str("merchant_id", merchantID.String()).Msg("Failed to load support roles")
		return res, true
	}
	roleIDs := make([]uuid.UUID, len(roles))
	for i, role := range roles {
		roleIDs[i] = role.ID
	}

	staff, err := rv.directory.ListMerchantStaffByRolesAndOutlet(ctx, roleIDs, outletID)
	if err != nil {
		log.Warn().Err(err).Str("outlet_id", outletID.String()).Msg("Failed to load role-eligible merchant staff")
		return res, true
	}
	for _, s := range staff {
		res.Eligible = append(res.Eligible, staffRecipient(s.ID, s.Email, s.FullName(), snapshot))
	}
	return res, true
}

func (rv *Resolver) resolveAdminClass(ctx context.Context, rm *room.Room, snapshot map[uuid.UUID]string) (ClassResolution, bool) {
	t, ok := rv.loadTicket(ctx, rm)
	if !ok {
		return ClassResolution{}, false
	}

	res := ClassResolution{Eligible: []Recipient{}}

	if t.AssignedAdminID.Valid {
		admin, err := rv.directory.GetAdminStaff(ctx, t.AssignedAdminID.UUID)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load assigned admin staff")
		} else if admin != nil {
			assigned := staffRecipient(admin.ID, admin.Email, admin.FullName(), snapshot)
			res.Assigned = &assigned
			if assigned.Reachable {
				return res, true
			}
		}
	}

	// Internal admin roles are the ones without a merchant scope
	roles, err := rv.directory.ListSupportRoles(ctx, uuid.Nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load admin support roles")
		return res, true
	}
	roleIDs := make([]uuid.UUID, len(roles))
	for i, role := range roles {
		roleIDs[i] = role.ID
	}

	admins, err := rv.directory.ListAdminStaffByRoles(ctx, roleIDs)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load role-eligible admin staff")
		return res, true
	}
	for _, a := range admins {
		res.Eligible = append(res.Eligible, staffRecipient(a.ID, a.Email, a.FullName(), snapshot))
	}
	return res, true
}

// loadTicket finds the room's originating ticket. A room without its
// ticket is a data-integrity problem, the staff class is skipped while
// the rest of the resolution proceeds.
func (rv *Resolver) loadTicket(ctx context.Context, rm *room.Room) (*ticket.Ticket, bool) {
	t, err := rv.tickets.GetByReference(ctx, rm.ReferenceNo)
	if err != nil {
		log.Warn().Err(err).Str("reference_no", rm.ReferenceNo).Msg("Failed to load ticket for room")
		return nil, false
	}
	if t == nil {
		log.Error().
			Str("room_id", rm.ID.String()).
			Str("reference_no", rm.ReferenceNo).
			Msg("Room references a missing ticket")
		return nil, false
	}
	return t, true
}

func staffRecipient(id uuid.UUID, email, name string, snapshot map[uuid.UUID]string) Recipient {
	r := Recipient{UserID: id, Email: email, DisplayName: name}
	if connID, ok := snapshot[id]; ok {
		r.ConnectionID = connID
		r.Reachable = true
	}
	return r
}

var _ PresenceSnapshotter = (*presence.Service)(nil)
