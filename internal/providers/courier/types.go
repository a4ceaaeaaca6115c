package courier

import "time"

// Shipment status ids as reported by the courier.
const (
	StatusPending1  = 1
	StatusPending2  = 2
	StatusPending3  = 3
	StatusPending4  = 4
	StatusDelivered = 5
	StatusReturned  = 6
	StatusPending7  = 7
)

// Credentials are the two opaque strings the courier issues per merchant.
type Credentials struct {
	Token string
	Key   string
}

// Shipment is one parcel lifecycle record.
type Shipment struct {
	Tracking     string    `json:"tracking"`
	StatusID     int       `json:"statusId"`
	CreatedAt    time.Time `json:"createdAt"`
	TotalRevenue float64   `json:"totalRevenue"`
	ShippingFee  float64   `json:"shippingFee"`
	CancelFee    float64   `json:"cancelFee"`
	OrderRef     string    `json:"orderRef"`
}

// ShipmentRequest is the creation payload for a new parcel.
type ShipmentRequest struct {
	OrderRef      string  `json:"order_ref" validate:"required"`
	Recipient     string  `json:"recipient" validate:"required"`
	Phone         string  `json:"phone" validate:"required"`
	Address       string  `json:"address" validate:"required"`
	WilayaID      int     `json:"wilaya_id" validate:"required,min=1"`
	Commune       string  `json:"commune"`
	Amount        float64 `json:"amount" validate:"min=0"`
	FreeShipping  bool    `json:"free_shipping"`
	StopDesk      bool    `json:"stop_desk"`
	ProductToShip string  `json:"product_to_ship"`
}

// Wilaya is the courier's province reference row with its fixed fees.
type Wilaya struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	DeliveryFee float64 `json:"deliveryFee"`
	CancelFee   float64 `json:"cancelFee"`
}

// wire shapes

type shipmentRow struct {
	Tracking     string `json:"tracking"`
	StatusID     int    `json:"id_etat"`
	CreatedAt    string `json:"date_creation"`
	TotalRevenue string `json:"total"`
	ShippingFee  string `json:"tarif_livraison"`
	CancelFee    string `json:"tarif_annulation"`
	OrderRef     string `json:"reference_commande"`
}

type shipmentsResponse struct {
	Data []shipmentRow `json:"data"`
}

type wilayaRow struct {
	ID          int    `json:"id"`
	Name        string `json:"nom"`
	DeliveryFee string `json:"tarif"`
	CancelFee   string `json:"tarif_annulation"`
}

type createShipmentResponse struct {
	Tracking string `json:"tracking"`
	Message  string `json:"message"`
}
