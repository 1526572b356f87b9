package soap

import (
	"encoding/xml"
	"fmt"
)

const envelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

type responseEnvelope struct {
	XMLName xml.Name     `xml:"soap:Envelope"`
	NS      string       `xml:"xmlns:soap,attr"`
	Body    responseBody `xml:"soap:Body"`
}

type responseBody struct {
	Response *createOrderResponse `xml:"createOrderResponse,omitempty"`
	Fault    *faultNode           `xml:"soap:Fault,omitempty"`
}

type createOrderResponse struct {
	Result    string `xml:"result"`
	OrderID   int64  `xml:"orderId"`
	OrderHash string `xml:"orderHash"`
	Message   string `xml:"message"`
}

type faultNode struct {
	Code   string      `xml:"faultcode"`
	String string      `xml:"faultstring"`
	Detail faultDetail `xml:"detail"`
}

type faultDetail struct {
	ErrorMessage string `xml:"errorMessage"`
}

// SuccessResponse renders the acknowledgement envelope for an accepted order.
func SuccessResponse(orderID int64, orderHash string) ([]byte, error) {
	return marshalEnvelope(responseBody{
		Response: &createOrderResponse{
			Result:    "success",
			OrderID:   orderID,
			OrderHash: orderHash,
			Message:   "order accepted",
		},
	})
}

// FaultResponse renders a SOAP fault. Client faults carry code soap:Client,
// everything else soap:Server.
func FaultResponse(clientFault bool, message string) ([]byte, error) {
	code := "soap:Server"
	if clientFault {
		code = "soap:Client"
	}
	return marshalEnvelope(responseBody{
		Fault: &faultNode{
			Code:   code,
			String: message,
			Detail: faultDetail{ErrorMessage: message},
		},
	})
}

func marshalEnvelope(body responseBody) ([]byte, error) {
	env := responseEnvelope{NS: envelopeNS, Body: body}
	out, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal soap envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
