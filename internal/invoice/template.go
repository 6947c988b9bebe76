package invoice

import "fmt"

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice - {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; color: #333; }
        .invoice-header { display: flex; justify-content: space-between; border-bottom: 3px solid #007bff; padding-bottom: 20px; margin-bottom: 30px; }
        .company-info h1 { margin: 0 0 8px; color: #007bff; }
        .company-info p { margin: 2px 0; }
        .invoice-details { text-align: right; }
        .invoice-details h2 { margin: 0 0 8px; color: #007bff; letter-spacing: 2px; }
        .invoice-details p { margin: 2px 0; }
        .customer-info { margin-bottom: 30px; }
        .customer-info h3 { margin-bottom: 8px; }
        .customer-info p { margin: 2px 0; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        th, td { padding: 10px 12px; border-bottom: 1px solid #dee2e6; }
        th { background: #007bff; color: #fff; text-align: left; }
        .text-right { text-align: right; }
        .invoice-summary { width: 320px; margin-left: auto; }
        .summary-row { display: flex; justify-content: space-between; padding: 6px 0; }
        .discount-row { color: #dc3545; }
        .total-row { border-top: 2px solid #333; font-weight: bold; font-size: 1.15em; padding-top: 10px; }
        .payment-info { margin-top: 10px; padding-top: 10px; border-top: 1px dashed #adb5bd; }
        .payment-method { margin-top: 20px; }
        .footer { margin-top: 40px; padding: 15px; text-align: center; background-color: #e9ecef; border-radius: 5px; border-left: 4px solid #28a745; }
        .footer p { margin: 4px 0; }
    </style>
</head>
<body>
    <div class="invoice-header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            <p>{{.Company.Address}}</p>
            <p>{{.Company.City}}</p>
            <p>Phone: {{.Company.Phone}}</p>
            <p>Email: {{.Company.Email}}</p>
        </div>
        <div class="invoice-details">
            <h2>INVOICE</h2>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Order ID:</strong> {{.OrderID}}</p>
            <p><strong>Date:</strong> {{.Date}}</p>
            <p><strong>Time:</strong> {{.Time}}</p>
        </div>
    </div>

    <div class="customer-info">
        <h3>Bill To:</h3>
        <p><strong>{{.CustomerName}}</strong></p>
        {{- if .CustomerPhone}}
        <p>Phone: {{.CustomerPhone}}</p>
        {{- end}}
        {{- if .CustomerAddress}}
        <p>Address: {{.CustomerAddress}}</p>
        {{- end}}
    </div>

    <table>
        <thead>
            <tr>
                <th>Item Description</th>
                <th class="text-right">Qty</th>
                <th class="text-right">Unit Price</th>
                <th class="text-right">Total</th>
            </tr>
        </thead>
        <tbody>
            {{- range .Items}}
            <tr>
                <td>{{.Name}}</td>
                <td class="text-right">{{.Quantity}}</td>
                <td class="text-right">${{.UnitPrice}}</td>
                <td class="text-right">${{.TotalPrice}}</td>
            </tr>
            {{- end}}
        </tbody>
    </table>

    <div class="invoice-summary">
        <div class="summary-row">
            <span>Subtotal:</span>
            <span>${{.Subtotal}}</span>
        </div>
        {{- if .ShowDiscount}}
        <div class="summary-row discount-row">
            <span>Discount:</span>
            <span>-${{.Discount}}</span>
        </div>
        {{- end}}
        {{- if .ShowDelivery}}
        <div class="summary-row delivery-row">
            <span>Delivery Fee:</span>
            <span>${{.Delivery}}</span>
        </div>
        {{- end}}
        <div class="summary-row">
            <span>Tax (0%):</span>
            <span>$0.00</span>
        </div>
        <div class="summary-row total-row">
            <span>FINAL TOTAL:</span>
            <span>${{.Total}}</span>
        </div>
        {{- if .IsCash}}
        <div class="payment-info">
            <div class="summary-row">
                <span>Amount Received:</span>
                <span>${{.AmountReceived}}</span>
            </div>
            <div class="summary-row">
                <span>Change:</span>
                <span>${{.Change}}</span>
            </div>
        </div>
        {{- end}}
    </div>

    <div class="payment-method">
        <p><strong>Payment Method:</strong> {{.PaymentMethod}}</p>
    </div>

    <div class="footer">
        <p><strong>Thank you for your business!</strong></p>
        <p>Questions? Contact us at {{.Company.Phone}} or {{.Company.Email}}</p>
        <p>Website: {{.Company.Website}}</p>
    </div>
</body>
</html>
`
