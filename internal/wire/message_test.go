package wire_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kestrelnet/dpsession/internal/wire"
)

func guidFrom(b string) wire.GUID {
	var g wire.GUID
	copy(g[:], b)
	return g
}

func TestHostEnumRequestRoundTrip(t *testing.T) {
	t.Parallel()

	want := wire.HostEnumRequestMsg{
		ApplicationGUID: guidFrom("application-guid-"),
		Tick:            99,
		UserData:        []byte("ping"),
	}
	got, err := wire.UnmarshalHostEnumRequest(want.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestHostEnumResponseRoundTrip(t *testing.T) {
	t.Parallel()

	want := wire.HostEnumResponseMsg{
		ApplicationGUID: guidFrom("app-guid---------"),
		InstanceGUID:    guidFrom("instance-guid----"),
		SessionName:     "Arena 7",
		MaxPlayers:      8,
		CurrentPlayers:  3,
		ApplicationData: []byte{1, 2, 3},
		Tick:            7,
		ResponseData:    []byte("pong"),
	}
	got, err := wire.UnmarshalHostEnumResponse(want.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestConnectHostRoundTrip(t *testing.T) {
	t.Parallel()

	want := wire.ConnectHostMsg{
		InstanceGUID:    guidFrom("instance---------"),
		ApplicationGUID: guidFrom("application------"),
		Password:        "sw0rdfish",
		RequestData:     []byte("req"),
		PlayerName:      "Gordon",
		PlayerData:      []byte{0xde, 0xad},
	}
	got, err := wire.UnmarshalConnectHost(want.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestConnectHostOKRoundTripWithPeerList(t *testing.T) {
	t.Parallel()

	want := wire.ConnectHostOKMsg{
		InstanceGUID: guidFrom("instance---------"),
		HostPlayerID: 1,
		AssignedID:   4,
		Peers: []wire.PeerAddr{
			{PlayerID: 2, IP: "10.0.0.2", Port: 6112},
			{PlayerID: 3, IP: "10.0.0.3", Port: 6112},
		},
		ReplyData:       []byte("welcome"),
		HostName:        "Alyx",
		HostData:        []byte{9},
		MaxPlayers:      8,
		SessionName:     "Arena 7",
		SessionPassword: "",
		ApplicationData: []byte("appdata"),
	}
	got, err := wire.UnmarshalConnectHostOK(want.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestConnectHostOKRoundTripEmptyPeerList(t *testing.T) {
	t.Parallel()

	want := wire.ConnectHostOKMsg{HostPlayerID: 1, AssignedID: 1}
	got, err := wire.UnmarshalConnectHostOK(want.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(got.Peers) != 0 {
		t.Errorf("Peers = %v, want empty", got.Peers)
	}
}

func TestMessageFlagsRoundTrip(t *testing.T) {
	t.Parallel()

	want := wire.MessageMsg{
		SenderPlayerID: 3,
		Flags:          wire.FlagGuaranteed | wire.FlagCoalesce,
		Payload:        []byte("gg"),
	}
	got, err := wire.UnmarshalMessage(want.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}

	if !got.Flags.Has(wire.FlagGuaranteed) {
		t.Error("Has(FlagGuaranteed) = false")
	}
	if got.Flags.Has(wire.FlagSync) {
		t.Error("Has(FlagSync) = true, want false")
	}
}

func TestAckRoundTrip(t *testing.T) {
	t.Parallel()

	want := wire.AckMsg{AckID: 5, ResultCode: 0, ResponseData: []byte("ok")}
	got, err := wire.UnmarshalAck(want.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestGroupCreateDestroyRoundTrip(t *testing.T) {
	t.Parallel()

	create := wire.GroupCreateMsg{GroupID: 1, GroupName: "red", GroupData: []byte("x"), OwnerPlayerID: 2}
	gotCreate, err := wire.UnmarshalGroupCreate(create.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalGroupCreate error: %v", err)
	}
	if !reflect.DeepEqual(gotCreate, create) {
		t.Errorf("GroupCreate round trip = %+v, want %+v", gotCreate, create)
	}

	destroy := wire.GroupDestroyMsg{GroupID: 1, ReasonData: []byte("disbanded")}
	gotDestroy, err := wire.UnmarshalGroupDestroy(destroy.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalGroupDestroy error: %v", err)
	}
	if !reflect.DeepEqual(gotDestroy, destroy) {
		t.Errorf("GroupDestroy round trip = %+v, want %+v", gotDestroy, destroy)
	}
}

func TestUnmarshalWrongMessageCode(t *testing.T) {
	t.Parallel()

	ackFrame := wire.AckMsg{AckID: 1}.Marshal()

	if _, err := wire.UnmarshalConnectHost(ackFrame); !errors.Is(err, wire.ErrTypeMismatch) {
		t.Errorf("UnmarshalConnectHost on an ACK frame: err = %v, want ErrTypeMismatch", err)
	}
}

func TestPeekCode(t *testing.T) {
	t.Parallel()

	frame := wire.DestroyPeerMsg{VictimPlayerID: 9}.Marshal()

	c, err := wire.PeekCode(frame)
	if err != nil {
		t.Fatalf("PeekCode() error: %v", err)
	}
	if c != wire.DestroyPeer {
		t.Errorf("PeekCode() = %v, want %v", c, wire.DestroyPeer)
	}
}

func TestMessageCodeStringUnknown(t *testing.T) {
	t.Parallel()

	if got := wire.MessageCode(255).String(); got != "Unknown(255)" {
		t.Errorf("MessageCode(255).String() = %q, want %q", got, "Unknown(255)")
	}
}
