package wire

import "fmt"

// MessageCode identifies the protocol message carried by a frame. Every
// frame's first field (index 0) is a DWORD holding the MessageCode; the
// remaining fields are that message's payload, decoded positionally.
type MessageCode uint32

// Message codes.
const (
	HostEnumRequest  MessageCode = 1
	HostEnumResponse MessageCode = 2
	ConnectHost      MessageCode = 3
	ConnectHostOK    MessageCode = 4
	ConnectHostFail  MessageCode = 5
	Message          MessageCode = 6
	PlayerInfo       MessageCode = 7
	Ack              MessageCode = 8
	AppDesc          MessageCode = 9
	ConnectPeer      MessageCode = 10
	ConnectPeerOK    MessageCode = 11
	ConnectPeerFail  MessageCode = 12
	DestroyPeer      MessageCode = 13
	TerminateSession MessageCode = 14
	GroupCreate      MessageCode = 16
	GroupDestroy     MessageCode = 17
)

// String returns the human-readable message code name.
func (c MessageCode) String() string {
	switch c {
	case HostEnumRequest:
		return "HOST_ENUM_REQUEST"
	case HostEnumResponse:
		return "HOST_ENUM_RESPONSE"
	case ConnectHost:
		return "CONNECT_HOST"
	case ConnectHostOK:
		return "CONNECT_HOST_OK"
	case ConnectHostFail:
		return "CONNECT_HOST_FAIL"
	case Message:
		return "MESSAGE"
	case PlayerInfo:
		return "PLAYERINFO"
	case Ack:
		return "ACK"
	case AppDesc:
		return "APPDESC"
	case ConnectPeer:
		return "CONNECT_PEER"
	case ConnectPeerOK:
		return "CONNECT_PEER_OK"
	case ConnectPeerFail:
		return "CONNECT_PEER_FAIL"
	case DestroyPeer:
		return "DESTROY_PEER"
	case TerminateSession:
		return "TERMINATE_SESSION"
	case GroupCreate:
		return "GROUP_CREATE"
	case GroupDestroy:
		return "GROUP_DESTROY"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(c))
	}
}

// code returns the MessageCode carried by a decoded frame.
func code(d *Decoder) (MessageCode, error) {
	v, err := d.DWord(0)
	if err != nil {
		return 0, fmt.Errorf("decode message code: %w", err)
	}
	return MessageCode(v), nil
}

// PeerAddr identifies one mesh member by player id and resolved
// transport address, as carried in CONNECT_HOST_OK's peer list.
type PeerAddr struct {
	PlayerID uint32
	IP       string
	Port     uint32
}

// HostEnumRequestMsg is HOST_ENUM_REQUEST (caller -> host, UDP).
type HostEnumRequestMsg struct {
	ApplicationGUID GUID // zero GUID means "no filter"
	Tick            uint32
	UserData        []byte
}

// Marshal encodes m as a HOST_ENUM_REQUEST frame.
func (m HostEnumRequestMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(HostEnumRequest)).
		PutGUID(m.ApplicationGUID).
		PutDWord(m.Tick).
		PutData(m.UserData).
		Frame()
}

// UnmarshalHostEnumRequest decodes a HOST_ENUM_REQUEST frame.
func UnmarshalHostEnumRequest(buf []byte) (HostEnumRequestMsg, error) {
	var m HostEnumRequestMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != HostEnumRequest {
		return m, fmt.Errorf("%w: expected HOST_ENUM_REQUEST, got %s", ErrTypeMismatch, c)
	}
	if m.ApplicationGUID, err = d.GUIDAt(1); err != nil {
		return m, err
	}
	if m.Tick, err = d.DWord(2); err != nil {
		return m, err
	}
	m.UserData, err = d.Data(3)
	return m, err
}

// HostEnumResponseMsg is HOST_ENUM_RESPONSE (host -> caller, UDP).
type HostEnumResponseMsg struct {
	ApplicationGUID GUID
	InstanceGUID    GUID
	SessionName     string
	MaxPlayers      uint32
	CurrentPlayers  uint32
	ApplicationData []byte
	Tick            uint32 // echoed from the request
	ResponseData    []byte // application-supplied reply blob, may be empty
}

// Marshal encodes m as a HOST_ENUM_RESPONSE frame.
func (m HostEnumResponseMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(HostEnumResponse)).
		PutGUID(m.ApplicationGUID).
		PutGUID(m.InstanceGUID).
		PutWString(m.SessionName).
		PutDWord(m.MaxPlayers).
		PutDWord(m.CurrentPlayers).
		PutData(m.ApplicationData).
		PutDWord(m.Tick).
		PutData(m.ResponseData).
		Frame()
}

// UnmarshalHostEnumResponse decodes a HOST_ENUM_RESPONSE frame.
func UnmarshalHostEnumResponse(buf []byte) (HostEnumResponseMsg, error) {
	var m HostEnumResponseMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != HostEnumResponse {
		return m, fmt.Errorf("%w: expected HOST_ENUM_RESPONSE, got %s", ErrTypeMismatch, c)
	}
	if m.ApplicationGUID, err = d.GUIDAt(1); err != nil {
		return m, err
	}
	if m.InstanceGUID, err = d.GUIDAt(2); err != nil {
		return m, err
	}
	if m.SessionName, err = d.WString(3); err != nil {
		return m, err
	}
	if m.MaxPlayers, err = d.DWord(4); err != nil {
		return m, err
	}
	if m.CurrentPlayers, err = d.DWord(5); err != nil {
		return m, err
	}
	if m.ApplicationData, err = d.Data(6); err != nil {
		return m, err
	}
	if m.Tick, err = d.DWord(7); err != nil {
		return m, err
	}
	m.ResponseData, err = d.Data(8)
	return m, err
}

// ConnectHostMsg is CONNECT_HOST (joiner -> host, TCP).
type ConnectHostMsg struct {
	InstanceGUID    GUID // zero GUID means "no filter"
	ApplicationGUID GUID
	Password        string
	RequestData     []byte
	PlayerName      string
	PlayerData      []byte
}

// Marshal encodes m as a CONNECT_HOST frame.
func (m ConnectHostMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(ConnectHost)).
		PutGUID(m.InstanceGUID).
		PutGUID(m.ApplicationGUID).
		PutWString(m.Password).
		PutData(m.RequestData).
		PutWString(m.PlayerName).
		PutData(m.PlayerData).
		Frame()
}

// UnmarshalConnectHost decodes a CONNECT_HOST frame.
func UnmarshalConnectHost(buf []byte) (ConnectHostMsg, error) {
	var m ConnectHostMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != ConnectHost {
		return m, fmt.Errorf("%w: expected CONNECT_HOST, got %s", ErrTypeMismatch, c)
	}
	if m.InstanceGUID, err = d.GUIDAt(1); err != nil {
		return m, err
	}
	if m.ApplicationGUID, err = d.GUIDAt(2); err != nil {
		return m, err
	}
	if m.Password, err = d.WString(3); err != nil {
		return m, err
	}
	if m.RequestData, err = d.Data(4); err != nil {
		return m, err
	}
	if m.PlayerName, err = d.WString(5); err != nil {
		return m, err
	}
	m.PlayerData, err = d.Data(6)
	return m, err
}

// ConnectHostOKMsg is CONNECT_HOST_OK (host -> joiner, TCP).
type ConnectHostOKMsg struct {
	InstanceGUID    GUID
	HostPlayerID    uint32
	AssignedID      uint32
	Peers           []PeerAddr
	ReplyData       []byte
	HostName        string
	HostData        []byte
	MaxPlayers      uint32
	SessionName     string
	SessionPassword string
	ApplicationData []byte
}

// Marshal encodes m as a CONNECT_HOST_OK frame.
func (m ConnectHostOKMsg) Marshal() []byte {
	e := NewEncoder().
		PutDWord(uint32(ConnectHostOK)).
		PutGUID(m.InstanceGUID).
		PutDWord(m.HostPlayerID).
		PutDWord(m.AssignedID).
		PutDWord(uint32(len(m.Peers)))
	for _, p := range m.Peers {
		e.PutDWord(p.PlayerID).PutWString(p.IP).PutDWord(p.Port)
	}
	e.PutData(m.ReplyData).
		PutWString(m.HostName).
		PutData(m.HostData).
		PutDWord(m.MaxPlayers).
		PutWString(m.SessionName).
		PutWString(m.SessionPassword).
		PutData(m.ApplicationData)
	return e.Frame()
}

// UnmarshalConnectHostOK decodes a CONNECT_HOST_OK frame.
func UnmarshalConnectHostOK(buf []byte) (ConnectHostOKMsg, error) {
	var m ConnectHostOKMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != ConnectHostOK {
		return m, fmt.Errorf("%w: expected CONNECT_HOST_OK, got %s", ErrTypeMismatch, c)
	}
	if m.InstanceGUID, err = d.GUIDAt(1); err != nil {
		return m, err
	}
	if m.HostPlayerID, err = d.DWord(2); err != nil {
		return m, err
	}
	if m.AssignedID, err = d.DWord(3); err != nil {
		return m, err
	}
	count, err := d.DWord(4)
	if err != nil {
		return m, err
	}
	idx := 5
	m.Peers = make([]PeerAddr, 0, count)
	for range count {
		var p PeerAddr
		if p.PlayerID, err = d.DWord(idx); err != nil {
			return m, err
		}
		if p.IP, err = d.WString(idx + 1); err != nil {
			return m, err
		}
		if p.Port, err = d.DWord(idx + 2); err != nil {
			return m, err
		}
		m.Peers = append(m.Peers, p)
		idx += 3
	}
	if m.ReplyData, err = d.Data(idx); err != nil {
		return m, err
	}
	if m.HostName, err = d.WString(idx + 1); err != nil {
		return m, err
	}
	if m.HostData, err = d.Data(idx + 2); err != nil {
		return m, err
	}
	if m.MaxPlayers, err = d.DWord(idx + 3); err != nil {
		return m, err
	}
	if m.SessionName, err = d.WString(idx + 4); err != nil {
		return m, err
	}
	if m.SessionPassword, err = d.WString(idx + 5); err != nil {
		return m, err
	}
	m.ApplicationData, err = d.Data(idx + 6)
	return m, err
}

// ConnectHostFailMsg is CONNECT_HOST_FAIL (host -> joiner, TCP).
type ConnectHostFailMsg struct {
	ErrorCode uint32
	ReplyData []byte
}

// Marshal encodes m as a CONNECT_HOST_FAIL frame.
func (m ConnectHostFailMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(ConnectHostFail)).
		PutDWord(m.ErrorCode).
		PutData(m.ReplyData).
		Frame()
}

// UnmarshalConnectHostFail decodes a CONNECT_HOST_FAIL frame.
func UnmarshalConnectHostFail(buf []byte) (ConnectHostFailMsg, error) {
	var m ConnectHostFailMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != ConnectHostFail {
		return m, fmt.Errorf("%w: expected CONNECT_HOST_FAIL, got %s", ErrTypeMismatch, c)
	}
	if m.ErrorCode, err = d.DWord(1); err != nil {
		return m, err
	}
	m.ReplyData, err = d.Data(2)
	return m, err
}

// ApplicationMessageFlags mirrors the SendTo flag bits.
type ApplicationMessageFlags uint32

const (
	FlagSync ApplicationMessageFlags = 1 << iota
	FlagGuaranteed
	FlagNoLoopback
	FlagCoalesce
	FlagCompleteOnProcess
)

// Has reports whether all bits in mask are set.
func (f ApplicationMessageFlags) Has(mask ApplicationMessageFlags) bool {
	return f&mask == mask
}

// MessageMsg is MESSAGE, the application payload envelope (TCP or UDP).
type MessageMsg struct {
	SenderPlayerID uint32
	Flags          ApplicationMessageFlags
	Payload        []byte
}

// Marshal encodes m as a MESSAGE frame.
func (m MessageMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(Message)).
		PutDWord(m.SenderPlayerID).
		PutDWord(uint32(m.Flags)).
		PutData(m.Payload).
		Frame()
}

// UnmarshalMessage decodes a MESSAGE frame.
func UnmarshalMessage(buf []byte) (MessageMsg, error) {
	var m MessageMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != Message {
		return m, fmt.Errorf("%w: expected MESSAGE, got %s", ErrTypeMismatch, c)
	}
	if m.SenderPlayerID, err = d.DWord(1); err != nil {
		return m, err
	}
	flags, err := d.DWord(2)
	if err != nil {
		return m, err
	}
	m.Flags = ApplicationMessageFlags(flags)
	m.Payload, err = d.Data(3)
	return m, err
}

// PlayerInfoMsg is PLAYERINFO (any -> any, TCP, acked).
type PlayerInfoMsg struct {
	AckID      uint32
	PlayerID   uint32
	PlayerName string
	PlayerData []byte
}

// Marshal encodes m as a PLAYERINFO frame.
func (m PlayerInfoMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(PlayerInfo)).
		PutDWord(m.AckID).
		PutDWord(m.PlayerID).
		PutWString(m.PlayerName).
		PutData(m.PlayerData).
		Frame()
}

// UnmarshalPlayerInfo decodes a PLAYERINFO frame.
func UnmarshalPlayerInfo(buf []byte) (PlayerInfoMsg, error) {
	var m PlayerInfoMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != PlayerInfo {
		return m, fmt.Errorf("%w: expected PLAYERINFO, got %s", ErrTypeMismatch, c)
	}
	if m.AckID, err = d.DWord(1); err != nil {
		return m, err
	}
	if m.PlayerID, err = d.DWord(2); err != nil {
		return m, err
	}
	if m.PlayerName, err = d.WString(3); err != nil {
		return m, err
	}
	m.PlayerData, err = d.Data(4)
	return m, err
}

// AckMsg is ACK (any -> any, TCP).
type AckMsg struct {
	AckID        uint32
	ResultCode   uint32
	ResponseData []byte
}

// Marshal encodes m as an ACK frame.
func (m AckMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(Ack)).
		PutDWord(m.AckID).
		PutDWord(m.ResultCode).
		PutData(m.ResponseData).
		Frame()
}

// UnmarshalAck decodes an ACK frame.
func UnmarshalAck(buf []byte) (AckMsg, error) {
	var m AckMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != Ack {
		return m, fmt.Errorf("%w: expected ACK, got %s", ErrTypeMismatch, c)
	}
	if m.AckID, err = d.DWord(1); err != nil {
		return m, err
	}
	if m.ResultCode, err = d.DWord(2); err != nil {
		return m, err
	}
	m.ResponseData, err = d.Data(3)
	return m, err
}

// AppDescMsg is APPDESC (host -> peer, TCP, acked).
type AppDescMsg struct {
	AckID           uint32
	MaxPlayers      uint32
	SessionName     string
	Password        string
	ApplicationData []byte
}

// Marshal encodes m as an APPDESC frame.
func (m AppDescMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(AppDesc)).
		PutDWord(m.AckID).
		PutDWord(m.MaxPlayers).
		PutWString(m.SessionName).
		PutWString(m.Password).
		PutData(m.ApplicationData).
		Frame()
}

// UnmarshalAppDesc decodes an APPDESC frame.
func UnmarshalAppDesc(buf []byte) (AppDescMsg, error) {
	var m AppDescMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != AppDesc {
		return m, fmt.Errorf("%w: expected APPDESC, got %s", ErrTypeMismatch, c)
	}
	if m.AckID, err = d.DWord(1); err != nil {
		return m, err
	}
	if m.MaxPlayers, err = d.DWord(2); err != nil {
		return m, err
	}
	if m.SessionName, err = d.WString(3); err != nil {
		return m, err
	}
	if m.Password, err = d.WString(4); err != nil {
		return m, err
	}
	m.ApplicationData, err = d.Data(5)
	return m, err
}

// ConnectPeerMsg is CONNECT_PEER (new joiner -> existing peer, TCP).
type ConnectPeerMsg struct {
	InstanceGUID    GUID
	ApplicationGUID GUID
	Password        string
	PlayerID        uint32
	PlayerName      string
	PlayerData      []byte
}

// Marshal encodes m as a CONNECT_PEER frame.
func (m ConnectPeerMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(ConnectPeer)).
		PutGUID(m.InstanceGUID).
		PutGUID(m.ApplicationGUID).
		PutWString(m.Password).
		PutDWord(m.PlayerID).
		PutWString(m.PlayerName).
		PutData(m.PlayerData).
		Frame()
}

// UnmarshalConnectPeer decodes a CONNECT_PEER frame.
func UnmarshalConnectPeer(buf []byte) (ConnectPeerMsg, error) {
	var m ConnectPeerMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != ConnectPeer {
		return m, fmt.Errorf("%w: expected CONNECT_PEER, got %s", ErrTypeMismatch, c)
	}
	if m.InstanceGUID, err = d.GUIDAt(1); err != nil {
		return m, err
	}
	if m.ApplicationGUID, err = d.GUIDAt(2); err != nil {
		return m, err
	}
	if m.Password, err = d.WString(3); err != nil {
		return m, err
	}
	if m.PlayerID, err = d.DWord(4); err != nil {
		return m, err
	}
	if m.PlayerName, err = d.WString(5); err != nil {
		return m, err
	}
	m.PlayerData, err = d.Data(6)
	return m, err
}

// ConnectPeerOKMsg is CONNECT_PEER_OK (existing peer -> new joiner, TCP).
type ConnectPeerOKMsg struct {
	PlayerID   uint32
	PlayerName string
	PlayerData []byte
}

// Marshal encodes m as a CONNECT_PEER_OK frame.
func (m ConnectPeerOKMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(ConnectPeerOK)).
		PutDWord(m.PlayerID).
		PutWString(m.PlayerName).
		PutData(m.PlayerData).
		Frame()
}

// UnmarshalConnectPeerOK decodes a CONNECT_PEER_OK frame.
func UnmarshalConnectPeerOK(buf []byte) (ConnectPeerOKMsg, error) {
	var m ConnectPeerOKMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != ConnectPeerOK {
		return m, fmt.Errorf("%w: expected CONNECT_PEER_OK, got %s", ErrTypeMismatch, c)
	}
	if m.PlayerID, err = d.DWord(1); err != nil {
		return m, err
	}
	if m.PlayerName, err = d.WString(2); err != nil {
		return m, err
	}
	m.PlayerData, err = d.Data(3)
	return m, err
}

// ConnectPeerFailMsg is CONNECT_PEER_FAIL (existing peer -> new joiner, TCP).
type ConnectPeerFailMsg struct {
	ErrorCode uint32
}

// Marshal encodes m as a CONNECT_PEER_FAIL frame.
func (m ConnectPeerFailMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(ConnectPeerFail)).
		PutDWord(m.ErrorCode).
		Frame()
}

// UnmarshalConnectPeerFail decodes a CONNECT_PEER_FAIL frame.
func UnmarshalConnectPeerFail(buf []byte) (ConnectPeerFailMsg, error) {
	var m ConnectPeerFailMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != ConnectPeerFail {
		return m, fmt.Errorf("%w: expected CONNECT_PEER_FAIL, got %s", ErrTypeMismatch, c)
	}
	m.ErrorCode, err = d.DWord(1)
	return m, err
}

// DestroyPeerMsg is DESTROY_PEER (host -> victim and -> all other peers).
type DestroyPeerMsg struct {
	VictimPlayerID uint32
	ReasonData     []byte
}

// Marshal encodes m as a DESTROY_PEER frame.
func (m DestroyPeerMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(DestroyPeer)).
		PutDWord(m.VictimPlayerID).
		PutData(m.ReasonData).
		Frame()
}

// UnmarshalDestroyPeer decodes a DESTROY_PEER frame.
func UnmarshalDestroyPeer(buf []byte) (DestroyPeerMsg, error) {
	var m DestroyPeerMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != DestroyPeer {
		return m, fmt.Errorf("%w: expected DESTROY_PEER, got %s", ErrTypeMismatch, c)
	}
	if m.VictimPlayerID, err = d.DWord(1); err != nil {
		return m, err
	}
	m.ReasonData, err = d.Data(2)
	return m, err
}

// TerminateSessionMsg is TERMINATE_SESSION (host -> all).
type TerminateSessionMsg struct {
	Data []byte
}

// Marshal encodes m as a TERMINATE_SESSION frame.
func (m TerminateSessionMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(TerminateSession)).
		PutData(m.Data).
		Frame()
}

// UnmarshalTerminateSession decodes a TERMINATE_SESSION frame.
func UnmarshalTerminateSession(buf []byte) (TerminateSessionMsg, error) {
	var m TerminateSessionMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != TerminateSession {
		return m, fmt.Errorf("%w: expected TERMINATE_SESSION, got %s", ErrTypeMismatch, c)
	}
	m.Data, err = d.Data(1)
	return m, err
}

// GroupCreateMsg is GROUP_CREATE (originator -> all, TCP).
type GroupCreateMsg struct {
	GroupID       uint32
	GroupName     string
	GroupData     []byte
	OwnerPlayerID uint32
}

// Marshal encodes m as a GROUP_CREATE frame.
func (m GroupCreateMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(GroupCreate)).
		PutDWord(m.GroupID).
		PutWString(m.GroupName).
		PutData(m.GroupData).
		PutDWord(m.OwnerPlayerID).
		Frame()
}

// UnmarshalGroupCreate decodes a GROUP_CREATE frame.
func UnmarshalGroupCreate(buf []byte) (GroupCreateMsg, error) {
	var m GroupCreateMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != GroupCreate {
		return m, fmt.Errorf("%w: expected GROUP_CREATE, got %s", ErrTypeMismatch, c)
	}
	if m.GroupID, err = d.DWord(1); err != nil {
		return m, err
	}
	if m.GroupName, err = d.WString(2); err != nil {
		return m, err
	}
	if m.GroupData, err = d.Data(3); err != nil {
		return m, err
	}
	m.OwnerPlayerID, err = d.DWord(4)
	return m, err
}

// GroupDestroyMsg is GROUP_DESTROY (originator -> all, TCP).
type GroupDestroyMsg struct {
	GroupID    uint32
	ReasonData []byte
}

// Marshal encodes m as a GROUP_DESTROY frame.
func (m GroupDestroyMsg) Marshal() []byte {
	return NewEncoder().
		PutDWord(uint32(GroupDestroy)).
		PutDWord(m.GroupID).
		PutData(m.ReasonData).
		Frame()
}

// UnmarshalGroupDestroy decodes a GROUP_DESTROY frame.
func UnmarshalGroupDestroy(buf []byte) (GroupDestroyMsg, error) {
	var m GroupDestroyMsg
	d, err := Decode(buf)
	if err != nil {
		return m, err
	}
	if c, err := code(d); err != nil || c != GroupDestroy {
		return m, fmt.Errorf("%w: expected GROUP_DESTROY, got %s", ErrTypeMismatch, c)
	}
	if m.GroupID, err = d.DWord(1); err != nil {
		return m, err
	}
	m.ReasonData, err = d.Data(2)
	return m, err
}

// PeekCode returns the MessageCode of a buffered frame without fully
// decoding its payload, used by the I/O pump to route to the right
// handler.
func PeekCode(buf []byte) (MessageCode, error) {
	d, err := Decode(buf)
	if err != nil {
		return 0, err
	}
	return code(d)
}
