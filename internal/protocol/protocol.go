package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeCatalog = "CATALOG"
	TypeCmd     = "CMD"
	TypeResult  = "RESULT"
)

// Command ops carried by CMD.
const (
	OpRegisterArea      = "REGISTER_AREA"
	OpEnterBuildingMode = "ENTER_BUILDING_MODE"
	OpExitBuildingMode  = "EXIT_BUILDING_MODE"
	OpOpenShop          = "OPEN_SHOP"
	OpShopSelect        = "SHOP_SELECT"
	OpShopQuantity      = "SHOP_QUANTITY"
	OpShopBack          = "SHOP_BACK"
	OpInteract          = "INTERACT"
	OpPlaceSelect       = "PLACE_SELECT"
	OpPrepareCollect    = "PREPARE_COLLECT"
	OpConfirm           = "CONFIRM"
	OpCancel            = "CANCEL"
	OpUnlock            = "UNLOCK"
	OpAddStock          = "ADD_STOCK"
	OpSetTier           = "SET_TIER"
	OpSetVariable       = "SET_VARIABLE"
	OpRender            = "RENDER"
	OpState             = "STATE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
