package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"reservation-booking-api/internal/booking"
)

const ServiceName = "reservation.v1.ReservationService"

// Full method names, as seen by interceptors.
const (
	MethodRegister          = "/" + ServiceName + "/Register"
	MethodLogin             = "/" + ServiceName + "/Login"
	MethodRefresh           = "/" + ServiceName + "/Refresh"
	MethodLogout            = "/" + ServiceName + "/Logout"
	MethodCreateReservation = "/" + ServiceName + "/CreateReservation"
	MethodListReservations  = "/" + ServiceName + "/ListReservations"
	MethodGetReservation    = "/" + ServiceName + "/GetReservation"
	MethodDeleteReservation = "/" + ServiceName + "/DeleteReservation"
	MethodCheckAvailability = "/" + ServiceName + "/CheckAvailability"
)

// OpenMethods need no access token.
var OpenMethods = []string{MethodRegister, MethodLogin, MethodRefresh}

// LimitedMethods are rate limited per client address.
var LimitedMethods = []string{MethodRegister, MethodLogin, MethodRefresh}

type Empty struct{}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SessionResponse struct {
	UserID       string `json:"userId"`
	Name         string `json:"name,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type CreateReservationRequest struct {
	ReservedSince string `json:"reservedSince"`
	ReservedTill  string `json:"reservedTill"`
}

// UnmarshalJSON lets wrong-typed dates reach validation.
func (r *CreateReservationRequest) UnmarshalJSON(b []byte) error {
	var in booking.Input
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	r.ReservedSince, r.ReservedTill = in.ReservedSince, in.ReservedTill
	return nil
}

type Reservation struct {
	ID            string `json:"id"`
	ReservedSince string `json:"reservedSince"`
	ReservedTill  string `json:"reservedTill"`
}

type ListReservationsResponse struct {
	Reservations []Reservation `json:"reservations"`
}

type ReservationID struct {
	ID string `json:"id"`
}

type CheckAvailabilityRequest struct {
	Since string `json:"since"`
	Till  string `json:"till"`
}

type DayAvailability struct {
	Date      string `json:"date"`
	Remaining int    `json:"remaining"`
}

type AvailabilityResponse struct {
	Ceiling int               `json:"ceiling"`
	Days    []DayAvailability `json:"days"`
}

// ReservationServiceServer is implemented by Handler.
type ReservationServiceServer interface {
	Register(context.Context, *RegisterRequest) (*SessionResponse, error)
	Login(context.Context, *LoginRequest) (*SessionResponse, error)
	Refresh(context.Context, *RefreshRequest) (*SessionResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
	CreateReservation(context.Context, *CreateReservationRequest) (*Reservation, error)
	ListReservations(context.Context, *Empty) (*ListReservationsResponse, error)
	GetReservation(context.Context, *ReservationID) (*Reservation, error)
	DeleteReservation(context.Context, *ReservationID) (*Empty, error)
	CheckAvailability(context.Context, *CheckAvailabilityRequest) (*AvailabilityResponse, error)
}

func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unary adapts one typed method to the grpc.MethodDesc handler shape.
func unary[Req, Resp any](full string, call func(ReservationServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReservationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReservationServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, ReservationServiceServer.Register)},
		{MethodName: "Login", Handler: unary(MethodLogin, ReservationServiceServer.Login)},
		{MethodName: "Refresh", Handler: unary(MethodRefresh, ReservationServiceServer.Refresh)},
		{MethodName: "Logout", Handler: unary(MethodLogout, ReservationServiceServer.Logout)},
		{MethodName: "CreateReservation", Handler: unary(MethodCreateReservation, ReservationServiceServer.CreateReservation)},
		{MethodName: "ListReservations", Handler: unary(MethodListReservations, ReservationServiceServer.ListReservations)},
		{MethodName: "GetReservation", Handler: unary(MethodGetReservation, ReservationServiceServer.GetReservation)},
		{MethodName: "DeleteReservation", Handler: unary(MethodDeleteReservation, ReservationServiceServer.DeleteReservation)},
		{MethodName: "CheckAvailability", Handler: unary(MethodCheckAvailability, ReservationServiceServer.CheckAvailability)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reservation/v1/reservation.proto",
}

// Client calls the service over a connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *Client, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[RegisterRequest, SessionResponse](ctx, c, MethodRegister, in, opts)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[LoginRequest, SessionResponse](ctx, c, MethodLogin, in, opts)
}

func (c *Client) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[RefreshRequest, SessionResponse](ctx, c, MethodRefresh, in, opts)
}

func (c *Client) Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty, Empty](ctx, c, MethodLogout, in, opts)
}

func (c *Client) CreateReservation(ctx context.Context, in *CreateReservationRequest, opts ...grpc.CallOption) (*Reservation, error) {
	return invoke[CreateReservationRequest, Reservation](ctx, c, MethodCreateReservation, in, opts)
}

func (c *Client) ListReservations(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListReservationsResponse, error) {
	return invoke[Empty, ListReservationsResponse](ctx, c, MethodListReservations, in, opts)
}

func (c *Client) GetReservation(ctx context.Context, in *ReservationID, opts ...grpc.CallOption) (*Reservation, error) {
	return invoke[ReservationID, Reservation](ctx, c, MethodGetReservation, in, opts)
}

func (c *Client) DeleteReservation(ctx context.Context, in *ReservationID, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[ReservationID, Empty](ctx, c, MethodDeleteReservation, in, opts)
}

func (c *Client) CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*AvailabilityResponse, error) {
	return invoke[CheckAvailabilityRequest, AvailabilityResponse](ctx, c, MethodCheckAvailability, in, opts)
}
